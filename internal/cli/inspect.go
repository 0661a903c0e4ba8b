package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/comgr/pkg/api"
)

// newSymbolsCommand creates the "symbols" subcommand that lists the symbols
// of a relocatable or executable code object.
func newSymbolsCommand(opts *Options) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "symbols FILE",
		Short: "List the symbols of a code object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindOf(args[0], kindName)
			if err != nil {
				return err
			}

			stack, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer stack.Close()
			m := stack.Manager

			d, err := loadFile(m, args[0], kind)
			if err != nil {
				return err
			}
			defer m.ReleaseData(d)

			w := cmd.OutOrStdout()
			return m.IterateSymbols(d, func(sym api.Symbol) error {
				return printSymbol(w, m, sym)
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Data kind of the file: relocatable or executable")
	return cmd
}

func printSymbol(w io.Writer, m api.Manager, sym api.Symbol) error {
	var attrs [api.SymbolInfoLast + 1]any
	for attr := api.SymbolInfoNameLength; attr <= api.SymbolInfoLast; attr++ {
		v, err := m.SymbolGetInfo(sym, attr)
		if err != nil {
			return err
		}
		attrs[attr] = v
	}
	undefined := ""
	if attrs[api.SymbolInfoIsUndefined].(bool) {
		undefined = " U"
	}
	_, err := fmt.Fprintf(w, "%016x %8d %-8s %s%s\n",
		attrs[api.SymbolInfoValue], attrs[api.SymbolInfoSize],
		attrs[api.SymbolInfoType], attrs[api.SymbolInfoName], undefined)
	return err
}

// newMetadataCommand creates the "metadata" subcommand that prints the
// metadata of a code object as YAML.
func newMetadataCommand(opts *Options) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "metadata FILE",
		Short: "Print the metadata of a code object as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindOf(args[0], kindName)
			if err != nil {
				return err
			}

			stack, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer stack.Close()
			m := stack.Manager

			d, err := loadFile(m, args[0], kind)
			if err != nil {
				return err
			}
			defer m.ReleaseData(d)

			root, err := m.GetDataMetadata(d)
			if err != nil {
				return err
			}
			defer m.DestroyMetadata(root)
			return printMetadata(cmd.OutOrStdout(), m, root)
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Data kind of the file (default from extension)")
	return cmd
}

func printMetadata(w io.Writer, m api.Manager, root api.MetadataNode) error {
	doc, err := metadataYAML(m, root)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// metadataYAML converts a metadata tree into a YAML node, keeping map
// entries in metadata order.
func metadataYAML(m api.Manager, n api.MetadataNode) (*yaml.Node, error) {
	kind, err := m.GetMetadataKind(n)
	if err != nil {
		return nil, err
	}

	switch kind {
	case api.MetadataKindString:
		s, err := m.GetMetadataString(n)
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil

	case api.MetadataKindList:
		size, err := m.GetMetadataListSize(n)
		if err != nil {
			return nil, err
		}
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < size; i++ {
			item, err := m.IndexListMetadata(n, i)
			if err != nil {
				return nil, err
			}
			child, err := metadataYAML(m, item)
			_ = m.DestroyMetadata(item)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, child)
		}
		return out, nil

	case api.MetadataKindMap:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		err := m.IterateMapMetadata(n, func(k, v api.MetadataNode) error {
			key, err := metadataYAML(m, k)
			if err != nil {
				return err
			}
			value, err := metadataYAML(m, v)
			if err != nil {
				return err
			}
			out.Content = append(out.Content, key, value)
			return nil
		})
		return out, err

	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}, nil
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newISACommand creates the "isa" command group.
func newISACommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isa",
		Short: "Inspect the supported instruction set architectures",
	}
	cmd.AddCommand(newISAListCommand(opts), newISAMetadataCommand(opts))
	return cmd
}

func newISAListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every supported ISA name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer stack.Close()

			m := stack.Manager
			for i := 0; i < m.ISACount(); i++ {
				name, err := m.ISAName(i)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newISAMetadataCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata ISA",
		Short: "Print the metadata of an ISA as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer stack.Close()

			root, err := stack.Manager.ISAMetadata(args[0])
			if err != nil {
				return err
			}
			defer stack.Manager.DestroyMetadata(root)
			return printMetadata(cmd.OutOrStdout(), stack.Manager, root)
		},
	}
}

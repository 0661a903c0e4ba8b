// Package metadata holds read-only metadata trees decoded from code object
// notes and the ISA table.
package metadata

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/comgr/pkg/api"
)

// ErrNotFound is returned by Lookup when a map has no such key.
var ErrNotFound = errors.New("metadata key not found")

// Entry is one key/value pair of a map node, in document order.
type Entry struct {
	Key   *Node
	Value *Node
}

// Node is an immutable metadata tree node.
type Node struct {
	kind    api.MetadataKind
	str     string
	entries []Entry
	items   []*Node
}

// Null is the shared empty node.
var Null = &Node{kind: api.MetadataKindNull}

// String builds a string node.
func String(s string) *Node {
	return &Node{kind: api.MetadataKindString, str: s}
}

// Map builds a map node from entries. The slice is not copied.
func Map(entries ...Entry) *Node {
	return &Node{kind: api.MetadataKindMap, entries: entries}
}

// List builds a list node.
func List(items ...*Node) *Node {
	return &Node{kind: api.MetadataKindList, items: items}
}

func (n *Node) Kind() api.MetadataKind {
	if n == nil {
		return api.MetadataKindNull
	}
	return n.kind
}

// Str returns the value of a string node.
func (n *Node) Str() (string, bool) {
	if n.Kind() != api.MetadataKindString {
		return "", false
	}
	return n.str, true
}

// Len returns the number of entries of a map or items of a list, 0 otherwise.
func (n *Node) Len() int {
	switch n.Kind() {
	case api.MetadataKindMap:
		return len(n.entries)
	case api.MetadataKindList:
		return len(n.items)
	default:
		return 0
	}
}

// Entries returns the entries of a map node.
func (n *Node) Entries() []Entry {
	if n.Kind() != api.MetadataKindMap {
		return nil
	}
	return n.entries
}

// Index returns the i'th item of a list node.
func (n *Node) Index(i int) (*Node, bool) {
	if n.Kind() != api.MetadataKindList || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// Lookup returns the value of the first entry whose key is the string key.
func (n *Node) Lookup(key string) (*Node, error) {
	if n.Kind() != api.MetadataKindMap {
		return nil, fmt.Errorf("lookup %q on %s node", key, n.Kind())
	}
	for _, e := range n.entries {
		if s, ok := e.Key.Str(); ok && s == key {
			return e.Value, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Decode parses a YAML document into a metadata tree. Scalars become string
// nodes, except explicit nulls. An empty document yields Null.
func Decode(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata yaml: %w", err)
	}
	return FromYAML(&doc), nil
}

// FromYAML converts a yaml.v3 node tree.
func FromYAML(y *yaml.Node) *Node {
	return fromYAML(y, 0)
}

// Aliases may form cycles; past this depth they decode as null.
const maxAliasDepth = 64

func fromYAML(y *yaml.Node, depth int) *Node {
	if y == nil || depth > maxAliasDepth {
		return Null
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Null
		}
		return fromYAML(y.Content[0], depth)
	case yaml.AliasNode:
		return fromYAML(y.Alias, depth+1)
	case yaml.ScalarNode:
		if y.ShortTag() == "!!null" {
			return Null
		}
		return String(y.Value)
	case yaml.SequenceNode:
		items := make([]*Node, 0, len(y.Content))
		for _, c := range y.Content {
			items = append(items, fromYAML(c, depth))
		}
		return List(items...)
	case yaml.MappingNode:
		return fromYAMLMapping(y, depth)
	default:
		return Null
	}
}

// fromYAMLMapping expands "<<" merge keys; explicit keys win over merged ones.
// Keys are unique in the result.
func fromYAMLMapping(y *yaml.Node, depth int) *Node {
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(y.Content); i += 2 {
		if k := y.Content[i]; k.ShortTag() != "!!merge" {
			explicit[k.Value] = true
		}
	}

	entries := make([]Entry, 0, len(y.Content)/2)
	seen := make(map[string]bool)
	// A repeated explicit key keeps its first position and its last value.
	at := make(map[string]int)
	for i := 0; i+1 < len(y.Content); i += 2 {
		k, v := y.Content[i], y.Content[i+1]
		if k.ShortTag() != "!!merge" {
			e := Entry{Key: fromYAML(k, depth), Value: fromYAML(v, depth)}
			name, ok := e.Key.Str()
			if !ok {
				entries = append(entries, e)
				continue
			}
			if j, dup := at[name]; dup {
				entries[j].Value = e.Value
				continue
			}
			at[name] = len(entries)
			entries = append(entries, e)
			continue
		}

		sources := []*yaml.Node{v}
		if v.Kind == yaml.SequenceNode {
			sources = v.Content
		}
		for _, src := range sources {
			merged := fromYAML(src, depth+1)
			for _, e := range merged.Entries() {
				name, ok := e.Key.Str()
				if ok && (explicit[name] || seen[name]) {
					continue
				}
				seen[name] = true
				entries = append(entries, e)
			}
		}
	}
	return Map(entries...)
}

// MarshalYAML renders the tree back to YAML, preserving map order.
func (n *Node) MarshalYAML() (any, error) {
	return n.toYAML(), nil
}

func (n *Node) toYAML() *yaml.Node {
	switch n.Kind() {
	case api.MetadataKindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.str}
	case api.MetadataKindList:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, it := range n.items {
			out.Content = append(out.Content, it.toYAML())
		}
		return out
	case api.MetadataKindMap:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range n.entries {
			out.Content = append(out.Content, e.Key.toYAML(), e.Value.toYAML())
		}
		return out
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

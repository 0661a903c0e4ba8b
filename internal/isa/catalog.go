// Package isa holds the table of supported target ISAs, their metadata and
// default device libraries.
package isa

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/comgr/internal/metadata"
	"github.com/petrijr/comgr/pkg/api"
)

//go:embed isa.yaml
var defaultTable []byte

// Target is one supported ISA.
type Target struct {
	Name     string
	Mach     uint32
	Version  string
	Metadata *metadata.Node
}

// Triple returns the target triple part of the ISA name.
func (t Target) Triple() string {
	triple, _ := SplitName(t.Name)
	return triple
}

// Processor returns the processor part of the ISA name.
func (t Target) Processor() string {
	_, cpu := SplitName(t.Name)
	return cpu
}

// SplitName splits "amdgcn-amd-amdhsa--gfx803" into the triple and processor.
func SplitName(name string) (triple, processor string) {
	triple, processor, _ = strings.Cut(name, "--")
	return triple, processor
}

// Catalog is an immutable ISA table.
type Catalog struct {
	targets []Target
	byName  map[string]int
	byMach  map[uint32]int
	libs    map[api.DataKind]map[string][]string
}

type tableFile struct {
	ISAs []struct {
		Name     string    `yaml:"name"`
		Mach     uint32    `yaml:"mach"`
		Version  string    `yaml:"version"`
		Metadata yaml.Node `yaml:"metadata"`
	} `yaml:"isas"`
	Libraries map[string]map[string][]string `yaml:"libraries"`
}

// Parse builds a catalog from a YAML ISA table.
func Parse(data []byte) (*Catalog, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse isa table: %w", err)
	}

	c := &Catalog{
		byName: make(map[string]int, len(tf.ISAs)),
		byMach: make(map[uint32]int, len(tf.ISAs)),
		libs:   make(map[api.DataKind]map[string][]string),
	}
	for _, raw := range tf.ISAs {
		if raw.Name == "" {
			return nil, fmt.Errorf("isa table: entry without name")
		}
		if _, dup := c.byName[raw.Name]; dup {
			return nil, fmt.Errorf("isa table: duplicate isa %q", raw.Name)
		}
		md := metadata.Null
		if raw.Metadata.Kind != 0 {
			md = metadata.FromYAML(&raw.Metadata)
		}
		c.byName[raw.Name] = len(c.targets)
		if raw.Mach != 0 {
			c.byMach[raw.Mach] = len(c.targets)
		}
		c.targets = append(c.targets, Target{
			Name:     raw.Name,
			Mach:     raw.Mach,
			Version:  raw.Version,
			Metadata: md,
		})
	}

	for kindName, byLang := range tf.Libraries {
		kind, err := api.ParseDataKind(kindName)
		if err != nil || !kind.ISASpecific() {
			return nil, fmt.Errorf("isa table: libraries for %q: not an isa specific data kind", kindName)
		}
		for lang := range byLang {
			if lang == "base" {
				continue
			}
			if _, err := api.ParseLanguage(lang); err != nil {
				return nil, fmt.Errorf("isa table: libraries for language %q: %w", lang, err)
			}
		}
		c.libs[kind] = byLang
	}
	return c, nil
}

// Load reads a YAML ISA table from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read isa table: %w", err)
	}
	return Parse(data)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog. It is parsed once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("isa: built-in table: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Len returns the number of targets.
func (c *Catalog) Len() int { return len(c.targets) }

// At returns the index'th target in table order.
func (c *Catalog) At(index int) (Target, bool) {
	if index < 0 || index >= len(c.targets) {
		return Target{}, false
	}
	return c.targets[index], true
}

// Lookup finds a target by its full ISA name.
func (c *Catalog) Lookup(name string) (Target, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Target{}, false
	}
	return c.targets[i], true
}

// ByMach finds the target whose e_flags processor value is mach.
func (c *Catalog) ByMach(mach uint32) (Target, bool) {
	i, ok := c.byMach[mach]
	if !ok {
		return Target{}, false
	}
	return c.targets[i], true
}

// Names returns every ISA name in table order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.targets))
	for i, t := range c.targets {
		out[i] = t.Name
	}
	return out
}

// Libraries returns the file names of the default device libraries of kind
// for a target and language: the base libraries followed by the language
// libraries, without duplicates. LanguageNone yields base libraries only.
func (c *Catalog) Libraries(t Target, kind api.DataKind, lang api.Language) []string {
	byLang := c.libs[kind]
	if byLang == nil {
		return nil
	}

	groups := [][]string{byLang["base"]}
	if lang != api.LanguageNone {
		groups = append(groups, byLang[lang.String()])
	}

	var out []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, name := range g {
			name = strings.ReplaceAll(name, "{version}", t.Version)
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

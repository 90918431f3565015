// Package manifest handles mic.toml component declarations.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/manwar/Mic/component"
)

var log = commonlog.GetLogger("mic.manifest")

// FileNames are the manifest names FindAndLoad looks for, in order.
var FileNames = []string{"mic.toml", "mic.yaml", "mic.yml"}

var (
	ErrInvalidManifest  = errors.New("invalid manifest")
	ErrUnknownComponent = errors.New("component not declared")
	ErrUnboundPredicate = errors.New("no predicate bound to description")
)

// Manifest represents a mic.toml file.
type Manifest struct {
	Project    Project                  `toml:"project" yaml:"project"`
	Assembler  AssemblerConfig          `toml:"assembler" yaml:"assembler"`
	Interfaces map[string]InterfaceDecl `toml:"interfaces" yaml:"interfaces"`
	Components map[string]ComponentDecl `toml:"components" yaml:"components"`
	Imports    map[string]Import        `toml:"imports" yaml:"imports"`

	// Path is the file the manifest was read from (set at load time).
	Path string `toml:"-" yaml:"-"`

	// Sources maps each interface to the file declaring it (set at load time).
	Sources map[string]string `toml:"-" yaml:"-"`

	imported []string
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" yaml:"name"`
	Version string `toml:"version" yaml:"version"`
}

// AssemblerConfig holds defaults for every component in the manifest.
type AssemblerConfig struct {
	Contracts ContractsDecl `toml:"contracts" yaml:"contracts"`
}

// ContractsDecl toggles guards. Unset fields inherit.
type ContractsDecl struct {
	Pre       *bool `toml:"pre" yaml:"pre"`
	Post      *bool `toml:"post" yaml:"post"`
	Invariant *bool `toml:"invariant" yaml:"invariant"`
}

// Apply overrides the fields of base that d sets.
func (d ContractsDecl) Apply(base component.Contracts) component.Contracts {
	if d.Pre != nil {
		base.Pre = *d.Pre
	}
	if d.Post != nil {
		base.Post = *d.Post
	}
	if d.Invariant != nil {
		base.Invariant = *d.Invariant
	}
	return base
}

// InterfaceDecl declares an interface. Invariants and conditions are
// descriptions; Go predicates are bound to them through a Predicates table.
type InterfaceDecl struct {
	Doc        string              `toml:"doc" yaml:"doc"`
	Object     []string            `toml:"object" yaml:"object"`
	Class      []string            `toml:"class" yaml:"class"`
	Extends    []string            `toml:"extends" yaml:"extends"`
	Invariants []string            `toml:"invariants" yaml:"invariants"`
	Require    map[string][]string `toml:"require" yaml:"require"`
	Ensure     map[string][]string `toml:"ensure" yaml:"ensure"`
}

// ComponentDecl declares a component. An empty Interface means the
// component's own name, which must then be declared under [interfaces].
type ComponentDecl struct {
	Interface      string         `toml:"interface" yaml:"interface"`
	Implementation string         `toml:"implementation" yaml:"implementation"`
	Contracts      *ContractsDecl `toml:"contracts" yaml:"contracts"`
}

// Load parses a manifest and the manifests it imports. path may name the
// file or the directory holding mic.toml. Files ending in .yaml or .yml
// are read as YAML.
func Load(path string) (*Manifest, error) {
	return load(path, nil)
}

func load(path string, stack []string) (*Manifest, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileNames[0])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	m.Sources = make(map[string]string, len(m.Interfaces))
	for name := range m.Interfaces {
		m.Sources[name] = m.Path
	}

	if err := m.resolveImports(stack); err != nil {
		return nil, err
	}
	log.Infof("loaded %s: %d interfaces, %d components", m.Path, len(m.Interfaces), len(m.Components))
	return m, nil
}

// Format selects the manifest syntax.
type Format int

const (
	TOML Format = iota
	YAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return TOML
}

// Parse decodes and validates manifest source. The schema sees the data
// before it is decoded into a Manifest, so type errors are reported as
// schema violations.
func Parse(data []byte, format Format) (*Manifest, error) {
	unmarshal := toml.Unmarshal
	if format == YAML {
		unmarshal = yaml.Unmarshal
	}

	var raw map[string]any
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a manifest file,
// then loads and returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Contracts returns the default guard toggles. Everything is enabled
// unless [assembler.contracts] says otherwise.
func (m *Manifest) Contracts() component.Contracts {
	return m.Assembler.Contracts.Apply(component.AllContracts)
}

// ComponentNames returns the declared component names, sorted.
func (m *Manifest) ComponentNames() []string {
	return sortedNames(m.Components)
}

// InterfaceNames returns the declared interface names, sorted.
func (m *Manifest) InterfaceNames() []string {
	return sortedNames(m.Interfaces)
}

// Definition returns the assembler input for a declared component.
func (m *Manifest) Definition(name string) (component.Definition, error) {
	decl, ok := m.Components[name]
	if !ok {
		return component.Definition{}, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	iface := decl.Interface
	if iface == "" {
		iface = name
	}
	contracts := m.Contracts()
	if decl.Contracts != nil {
		contracts = decl.Contracts.Apply(contracts)
	}
	return component.Definition{
		Name:           name,
		Interface:      iface,
		Implementation: decl.Implementation,
		Contracts:      &contracts,
	}, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

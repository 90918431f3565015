package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var ErrImportCycle = errors.New("import cycle")

// Import names another manifest whose interface declarations are shared.
// Path is relative to the importing manifest's directory and may name the
// file or its directory.
type Import struct {
	Path string `toml:"path" yaml:"path"`
}

// Imported returns the files pulled in through [imports], dependencies
// before dependents.
func (m *Manifest) Imported() []string {
	return slices.Clone(m.imported)
}

// resolveImports loads every imported manifest and merges its interfaces
// into m. Local declarations win; between imports, the first in name order
// wins. Components are never imported.
func (m *Manifest) resolveImports(stack []string) error {
	if slices.Contains(stack, m.Path) {
		chain := append(slices.Clone(stack), m.Path)
		return fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(chain, " -> "))
	}
	stack = append(stack, m.Path)

	if m.Interfaces == nil && len(m.Imports) > 0 {
		m.Interfaces = make(map[string]InterfaceDecl)
	}
	for _, name := range sortedNames(m.Imports) {
		path := m.Imports[name].Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.Dir(), path)
		}
		dep, err := load(path, stack)
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}

		for _, p := range dep.imported {
			m.addImported(p)
		}
		m.addImported(dep.Path)

		for _, iface := range dep.InterfaceNames() {
			src := dep.Sources[iface]
			if have, ok := m.Sources[iface]; ok {
				if have != src {
					log.Warningf("%s: interface %s from %s shadows the one in %s", m.Path, iface, have, src)
				}
				continue
			}
			m.Interfaces[iface] = dep.Interfaces[iface]
			m.Sources[iface] = src
		}
	}
	return nil
}

func (m *Manifest) addImported(path string) {
	if !slices.Contains(m.imported, path) {
		m.imported = append(m.imported, path)
	}
}

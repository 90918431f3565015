package manifest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/manwar/Mic/component"
)

// Interface builds the declared interface name, binding its descriptions
// through preds.
func (m *Manifest) Interface(name string, preds *Predicates) (*component.Interface, error) {
	decl, ok := m.Interfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", component.ErrInvalidInterface, name)
	}

	spec := component.NewInterface(name, decl.Object...).
		WithClass(decl.Class...).
		Extend(decl.Extends...)
	spec.DocString = decl.Doc

	for _, desc := range decl.Invariants {
		check, ok := preds.invariant(desc)
		if !ok {
			return nil, fmt.Errorf("interface %s: invariant %q: %w", name, desc, ErrUnboundPredicate)
		}
		spec.Invariant(desc, check)
	}
	if err := bindConditions(name, decl.Require, preds, spec.Require); err != nil {
		return nil, err
	}
	if err := bindConditions(name, decl.Ensure, preds, spec.Ensure); err != nil {
		return nil, err
	}
	return spec, nil
}

func bindConditions(iface string, byOp map[string][]string, preds *Predicates, add func(op, desc string, check func(*component.Call) bool) *component.Interface) error {
	ops := sortedNames(byOp)
	for _, op := range ops {
		for _, desc := range byOp[op] {
			check, ok := preds.condition(desc)
			if !ok {
				return fmt.Errorf("interface %s: %s condition %q: %w", iface, op, desc, ErrUnboundPredicate)
			}
			add(op, desc, check)
		}
	}
	return nil
}

// Loader returns an interface loader that builds declarations from the
// manifest on demand. Names the manifest does not declare are reported as
// unknown so the table fails them.
func (m *Manifest) Loader(preds *Predicates) component.InterfaceLoader {
	return func(name string) (*component.Interface, error) {
		if _, ok := m.Interfaces[name]; !ok {
			return nil, nil
		}
		log.Debugf("loading interface %s from %s", name, m.Path)
		return m.Interface(name, preds)
	}
}

// Assemble installs the manifest as a's interface loader and assembles
// every declared component in name order. The implementations must
// already be registered with a.
func (m *Manifest) Assemble(a *component.Assembler, preds *Predicates) ([]*component.Component, error) {
	a.Interfaces().SetLoader(m.Loader(preds))

	var out []*component.Component
	for _, name := range m.ComponentNames() {
		def, err := m.Definition(name)
		if err != nil {
			return out, err
		}
		c, err := a.Assemble(def)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ErrDeclarationOnly is returned by the operations of a dry-run component.
var ErrDeclarationOnly = errors.New("declared but not implemented")

// DryRun assembles every component against stand-in implementations that
// implement exactly the declared interface. It reports every component
// that fails assembly, not just the first, and returns the ones that
// succeeded. Predicates are not consulted.
func (m *Manifest) DryRun() ([]*component.Component, error) {
	a := component.NewAssembler(component.WithContracts(m.Contracts()))
	a.Interfaces().SetLoader(m.Loader(nil))

	var out []*component.Component
	var errs []error
	for _, name := range m.ComponentNames() {
		def, err := m.Definition(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved, err := a.Interfaces().Resolve(def.Interface)
		if err != nil {
			errs = append(errs, fmt.Errorf("component %s: %w", name, err))
			continue
		}
		// A stand-in named after the component would be rejected for the
		// wrong reason; let the assembler report that itself.
		if def.Implementation != "" && def.Implementation != name {
			a.Implementations().Register(standIn(def.Implementation, resolved.Spec))
		}
		c, err := a.Assemble(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

func standIn(name string, spec *component.Interface) *component.Implementation {
	impl := component.NewImplementation(name)
	for _, op := range spec.Object {
		if op == component.OpDoes || op == component.OpCan {
			continue
		}
		impl.Method(op, func(self *component.Self, args ...any) (any, error) {
			return nil, fmt.Errorf("%s.%s: %w", self.Component().Name(), op, ErrDeclarationOnly)
		})
	}
	for _, op := range spec.Class {
		impl.ClassMethod(op, func(cls *component.ClassContext, args ...any) (any, error) {
			return nil, fmt.Errorf("%s.%s: %w", cls.Component().Name(), op, ErrDeclarationOnly)
		})
	}
	return impl
}

// Describe returns the descriptors of every component that passes a dry
// run, sorted by name.
func (m *Manifest) Describe() ([]*component.Descriptor, error) {
	components, err := m.DryRun()
	if err != nil {
		return nil, err
	}
	out := make([]*component.Descriptor, 0, len(components))
	for _, c := range components {
		out = append(out, c.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

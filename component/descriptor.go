package component

import "sort"

// Descriptor is the plain-data view of a component: everything a tool needs
// to answer "does" and "can" without the operation bodies.
type Descriptor struct {
	Name            string           `cbor:"name" yaml:"name"`
	Interface       string           `cbor:"interface,omitempty" yaml:"interface,omitempty"`
	Does            []string         `cbor:"does" yaml:"does"`
	Can             []string         `cbor:"can" yaml:"can"`
	ClassOperations []string         `cbor:"class" yaml:"class"`
	Semiprivate     []string         `cbor:"semiprivate,omitempty" yaml:"semiprivate,omitempty"`
	Slots           []SlotDescriptor `cbor:"slots,omitempty" yaml:"slots,omitempty"`
	Invariants      []string         `cbor:"invariants,omitempty" yaml:"invariants,omitempty"`
	Contracts       Contracts        `cbor:"contracts" yaml:"contracts"`
}

// SlotDescriptor describes one attribute slot.
type SlotDescriptor struct {
	Name     string   `cbor:"name" yaml:"name"`
	Offset   int      `cbor:"offset" yaml:"offset"`
	InitArg  string   `cbor:"init_arg,omitempty" yaml:"init_arg,omitempty"`
	Reader   string   `cbor:"reader,omitempty" yaml:"reader,omitempty"`
	Writer   string   `cbor:"writer,omitempty" yaml:"writer,omitempty"`
	Forwards []string `cbor:"forwards,omitempty" yaml:"forwards,omitempty"`
}

// Descriptor returns the component's descriptor.
func (c *Component) Descriptor() *Descriptor {
	d := &Descriptor{
		Name:            c.name,
		Interface:       c.ifaceName,
		Does:            c.Interfaces(),
		Can:             c.Operations(),
		ClassOperations: c.ClassOperations(),
		Semiprivate:     sortedKeys(c.semiprivate),
		Contracts:       c.contracts,
	}
	for _, inv := range c.spec.Invariants {
		d.Invariants = append(d.Invariants, inv.Description)
	}

	forwardsBySlot := make(map[int][]string)
	for _, p := range c.forwards {
		for _, off := range p.offsets {
			forwardsBySlot[off] = append(forwardsBySlot[off], p.name)
		}
	}
	for i, a := range c.attrs {
		fw := forwardsBySlot[i]
		sort.Strings(fw)
		d.Slots = append(d.Slots, SlotDescriptor{
			Name:     a.Name,
			Offset:   i,
			InitArg:  a.InitArg,
			Reader:   a.Reader,
			Writer:   a.Writer,
			Forwards: fw,
		})
	}
	return d
}

// Satisfies reports whether the described component does iface.
func (d *Descriptor) Satisfies(iface string) bool {
	for _, n := range d.Does {
		if n == iface {
			return true
		}
	}
	return false
}

// Supports reports whether the described component can do op.
func (d *Descriptor) Supports(op string) bool {
	for _, n := range d.Can {
		if n == op {
			return true
		}
	}
	return false
}

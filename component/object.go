package component

import (
	"fmt"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Object: the public handle of an instance
// ---------------------------------------------------------------------------

// Object is an instance of an assembled component. It exclusively owns its
// slot array; the component metadata is shared and immutable.
//
// Objects carry no locks. Callers sharing one object across goroutines
// must coordinate access themselves.
type Object struct {
	id        string
	component *Component
	slots     []any
	self      *Self
}

func (c *Component) allocate() *Object {
	o := &Object{
		id:        uuid.New().String(),
		component: c,
		slots:     make([]any, c.layout.Len()),
	}
	o.self = &Self{obj: o}
	for i, a := range c.attrs {
		switch {
		case a.DefaultFunc != nil:
			o.slots[i] = a.DefaultFunc()
		default:
			o.slots[i] = a.Default
		}
	}
	return o
}

// ID returns the instance's unique id.
func (o *Object) ID() string { return o.id }

// Component returns the component this object was constructed from.
func (o *Object) Component() *Component { return o.component }

// Call invokes a public operation. Invariants are checked before and after,
// preconditions and postconditions around the body.
func (o *Object) Call(op string, args ...any) (any, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: cannot send %s", ErrNilTarget, op)
	}
	entry, ok := o.component.object[op]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", o.component.name, ErrUnknownOperation, op)
	}
	return entry.external(o.self, args...)
}

// Does reports whether the object's component satisfies an interface.
func (o *Object) Does(iface string) bool { return o.component.Does(iface) }

// Interfaces returns every interface the object's component satisfies.
func (o *Object) Interfaces() []string { return o.component.Interfaces() }

// Can reports whether op is externally callable.
func (o *Object) Can(op string) bool { return o.component.Can(op) }

// Operations returns the externally callable operation names.
func (o *Object) Operations() []string { return o.component.Operations() }

// String implements the Stringer interface.
func (o *Object) String() string {
	return fmt.Sprintf("<%s %s>", o.component.name, o.id)
}

// ---------------------------------------------------------------------------
// Self: the internal handle given to operation bodies
// ---------------------------------------------------------------------------

// Self gives an operation body access to the instance's private state.
// Only code running inside the component receives one.
type Self struct {
	obj *Object
}

// Get returns the value of an attribute, or nil if it is not declared.
func (s *Self) Get(attr string) any {
	return s.Slot(s.obj.component.layout.Index(attr))
}

// Lookup returns the value of an attribute and whether it is declared.
func (s *Self) Lookup(attr string) (any, bool) {
	i := s.obj.component.layout.Index(attr)
	if i < 0 {
		return nil, false
	}
	return s.obj.slots[i], true
}

// Set stores a value in an attribute's slot.
func (s *Self) Set(attr string, value any) error {
	i := s.obj.component.layout.Index(attr)
	if i < 0 {
		return fmt.Errorf("%s: %w: %s", s.obj.component.name, ErrUnknownAttribute, attr)
	}
	s.obj.slots[i] = value
	return nil
}

// Slot returns the value at an offset, or nil if out of range.
func (s *Self) Slot(offset int) any {
	if offset < 0 || offset >= len(s.obj.slots) {
		return nil
	}
	return s.obj.slots[offset]
}

// SetSlot stores a value at an offset. Out of range offsets are ignored.
func (s *Self) SetSlot(offset int, value any) {
	if offset >= 0 && offset < len(s.obj.slots) {
		s.obj.slots[offset] = value
	}
}

// Call invokes another operation on the same instance from inside the
// component. Pre- and postconditions still apply; invariants do not, so
// intermediate states may break them. Operations not named in the interface
// are reachable here too.
func (s *Self) Call(op string, args ...any) (any, error) {
	c := s.obj.component
	if entry, ok := c.object[op]; ok {
		return entry.internal(s, args...)
	}
	if fn, ok := c.inert[op]; ok {
		return fn(s, args...)
	}
	return nil, fmt.Errorf("%s: %w: %s", c.name, ErrUnknownOperation, op)
}

// Object returns the public handle, e.g. to return the instance to a caller.
func (s *Self) Object() *Object { return s.obj }

// Component returns the instance's component.
func (s *Self) Component() *Component { return s.obj.component }

// Semiprivate returns the capability for the instance's semiprivate
// operations.
func (s *Self) Semiprivate() *Semiprivate { return &Semiprivate{self: s} }

// Internals grants internal access to another instance of the same
// component, so operations such as equality can read a peer's slots.
func (s *Self) Internals(other *Object) (*Self, error) {
	if other == nil || other.component != s.obj.component {
		return nil, fmt.Errorf("%s: %w", s.obj.component.name, ErrNotPeer)
	}
	return other.self, nil
}

// ClassVar returns a class variable of the instance's component.
func (s *Self) ClassVar(name string) any { return s.obj.component.ClassVar(name) }

// SetClassVar sets a class variable of the instance's component.
func (s *Self) SetClassVar(name string, value any) { s.obj.component.SetClassVar(name, value) }

// ---------------------------------------------------------------------------
// Semiprivate: restricted capability
// ---------------------------------------------------------------------------

// Semiprivate exposes only the semiprivate operations of one instance. It
// can only be obtained from a Self.
type Semiprivate struct {
	self *Self
}

// Call invokes a semiprivate operation.
func (p *Semiprivate) Call(op string, args ...any) (any, error) {
	c := p.self.obj.component
	fn, ok := c.semiprivate[op]
	if !ok {
		return nil, fmt.Errorf("%s: %w: semiprivate %s", c.name, ErrUnknownOperation, op)
	}
	return fn(p.self, args...)
}

// Can reports whether op is a semiprivate operation.
func (p *Semiprivate) Can(op string) bool {
	_, ok := p.self.obj.component.semiprivate[op]
	return ok
}

// Operations returns the semiprivate operation names, sorted.
func (p *Semiprivate) Operations() []string {
	return sortedKeys(p.self.obj.component.semiprivate)
}

package component

import (
	"fmt"
	"sync"
)

// Implementation holds the private state declarations and the operation
// bodies realizing an interface. An implementation belongs to exactly one
// component.
type Implementation struct {
	Name            string
	Attributes      []Attribute
	Operations      map[string]Func
	Semiprivate     map[string]Func
	ClassOperations map[string]ClassFunc
	Forwards        []Forward
	Build           BuildFunc
	ClassVars       map[string]any
}

// Attribute declares one slot of private state.
type Attribute struct {
	Name        string
	Default     any        // Stored as-is in every new instance
	DefaultFunc func() any // Evaluated per instance; takes precedence over Default
	InitArg     string     // Keyword accepted by the default constructor
	Reader      string     // Generated getter name
	Writer      string     // Generated setter name; may equal Reader
	Forwards    []Forward  // Delegations whose target defaults to this attribute
}

// Forward routes the operations in Send to the values held in the To
// attributes. As optionally renames each operation on the target side.
type Forward struct {
	Send []string
	To   []string
	As   []string
}

// NewImplementation creates an implementation with empty operation maps.
func NewImplementation(name string) *Implementation {
	return &Implementation{
		Name:            name,
		Operations:      make(map[string]Func),
		Semiprivate:     make(map[string]Func),
		ClassOperations: make(map[string]ClassFunc),
	}
}

// Has declares an attribute.
func (impl *Implementation) Has(attr Attribute) *Implementation {
	impl.Attributes = append(impl.Attributes, attr)
	return impl
}

// Method adds an object operation.
func (impl *Implementation) Method(name string, fn Func) *Implementation {
	if impl.Operations == nil {
		impl.Operations = make(map[string]Func)
	}
	impl.Operations[name] = fn
	return impl
}

// SemiprivateMethod adds an operation reachable only from the component's
// own code.
func (impl *Implementation) SemiprivateMethod(name string, fn Func) *Implementation {
	if impl.Semiprivate == nil {
		impl.Semiprivate = make(map[string]Func)
	}
	impl.Semiprivate[name] = fn
	return impl
}

// ClassMethod adds a class operation.
func (impl *Implementation) ClassMethod(name string, fn ClassFunc) *Implementation {
	if impl.ClassOperations == nil {
		impl.ClassOperations = make(map[string]ClassFunc)
	}
	impl.ClassOperations[name] = fn
	return impl
}

// Forward adds an implementation-level delegation.
func (impl *Implementation) Forward(f Forward) *Implementation {
	impl.Forwards = append(impl.Forwards, f)
	return impl
}

// implemented reports whether name has a directly written body.
func (impl *Implementation) implemented(name string) bool {
	if _, ok := impl.Operations[name]; ok {
		return true
	}
	_, ok := impl.Semiprivate[name]
	return ok
}

// ---------------------------------------------------------------------------
// ImplementationTable: registry of implementation modules
// ---------------------------------------------------------------------------

// ImplementationTable manages registered implementations by name.
// It's safe for concurrent use.
type ImplementationTable struct {
	mu    sync.RWMutex
	impls map[string]*Implementation
}

// NewImplementationTable creates a new empty implementation table.
func NewImplementationTable() *ImplementationTable {
	return &ImplementationTable{
		impls: make(map[string]*Implementation),
	}
}

// Register adds an implementation to the table.
// Returns the previous implementation with this name, or nil.
func (t *ImplementationTable) Register(impl *Implementation) *Implementation {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.impls[impl.Name]
	t.impls[impl.Name] = impl
	return old
}

// Lookup returns the implementation registered under name, or an error
// wrapping ErrNoImplementation.
func (t *ImplementationTable) Lookup(name string) (*Implementation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	impl, ok := t.impls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoImplementation, name)
	}
	return impl, nil
}

// Has returns true if an implementation with this name is registered.
func (t *ImplementationTable) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.impls[name]
	return ok
}

// Names returns the registered implementation names, sorted.
func (t *ImplementationTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.impls)
}

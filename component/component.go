package component

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Component: the assembled result
// ---------------------------------------------------------------------------

// Component is an assembled, immutable class: its flattened interface, slot
// layout, method tables and contract guards. Instances share it.
type Component struct {
	name      string
	ifaceName string     // Named interface, "" if declared inline
	spec      *Interface // Flattened
	layout    *SlotLayout
	attrs     []Attribute
	does      []string
	contracts Contracts

	object      map[string]*MethodEntry // Externally callable
	inert       map[string]Func         // Implemented but not in the interface
	semiprivate map[string]Func
	class       map[string]*ClassEntry // Externally callable class operations
	classAll    map[string]*ClassEntry // Every class operation
	forwards    []forwardPlan

	build     BuildFunc
	invariant invariantGuard
	copiers   map[reflect.Type]CopierFunc

	classVarMu sync.RWMutex
	classVars  map[string]any
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// String implements the Stringer interface.
func (c *Component) String() string { return c.name }

// Interface returns a copy of the flattened interface.
func (c *Component) Interface() *Interface { return c.spec.Clone() }

// Layout returns the slot layout shared by every instance.
func (c *Component) Layout() *SlotLayout { return c.layout }

// Contracts returns the guard toggles the component was assembled with.
func (c *Component) Contracts() Contracts { return c.contracts }

// Does reports whether the component satisfies an interface: its own name,
// its named interface, or any ancestor of either.
func (c *Component) Does(iface string) bool {
	return slices.Contains(c.does, iface)
}

// Interfaces returns every interface name the component satisfies, sorted.
func (c *Component) Interfaces() []string {
	result := slices.Clone(c.does)
	sort.Strings(result)
	return result
}

// Can reports whether op is an externally callable object operation.
func (c *Component) Can(op string) bool {
	_, ok := c.object[op]
	return ok
}

// Operations returns the externally callable object operations, sorted.
func (c *Component) Operations() []string {
	return sortedKeys(c.object)
}

// ClassOperations returns the externally callable class operations, sorted.
func (c *Component) ClassOperations() []string {
	return sortedKeys(c.class)
}

// Method returns the method table entry for a public operation.
func (c *Component) Method(op string) (*MethodEntry, bool) {
	e, ok := c.object[op]
	return e, ok
}

// New constructs an instance through the "new" class operation.
func (c *Component) New(args ...any) (*Object, error) {
	result, err := c.CallClass(OpNew, args...)
	if err != nil {
		return nil, err
	}
	obj, ok := result.(*Object)
	if !ok || obj == nil {
		return nil, fmt.Errorf("%s.new: returned %T, want *Object", c.name, result)
	}
	return obj, nil
}

// CallClass invokes an externally callable class operation.
func (c *Component) CallClass(op string, args ...any) (any, error) {
	entry, ok := c.class[op]
	if !ok {
		return nil, fmt.Errorf("%s: %w: class %s", c.name, ErrUnknownOperation, op)
	}
	return entry.fn(&ClassContext{component: c}, args...)
}

// ---------------------------------------------------------------------------
// Class Variables
// ---------------------------------------------------------------------------

// ClassVar returns the value of a class variable, or nil if unset.
func (c *Component) ClassVar(name string) any {
	c.classVarMu.RLock()
	defer c.classVarMu.RUnlock()
	return c.classVars[name]
}

// SetClassVar sets the value of a class variable.
func (c *Component) SetClassVar(name string, value any) {
	c.classVarMu.Lock()
	defer c.classVarMu.Unlock()
	c.classVars[name] = value
}

// ClassVarNames returns the names of all class variables, sorted.
func (c *Component) ClassVarNames() []string {
	c.classVarMu.RLock()
	defer c.classVarMu.RUnlock()
	return sortedKeys(c.classVars)
}

// ---------------------------------------------------------------------------
// ClassContext: what class operations receive
// ---------------------------------------------------------------------------

// ClassContext is passed to class operations in place of an instance.
type ClassContext struct {
	component *Component
}

// Component returns the component the operation was invoked on.
func (cls *ClassContext) Component() *Component { return cls.component }

// Construct runs the default construction sequence. Custom "new"
// operations use it after preparing their arguments.
func (cls *ClassContext) Construct(args ...any) (*Object, error) {
	return cls.component.construct(args)
}

// Call invokes any class operation of the component, including ones the
// interface does not expose.
func (cls *ClassContext) Call(op string, args ...any) (any, error) {
	entry, ok := cls.component.classAll[op]
	if !ok {
		return nil, fmt.Errorf("%s: %w: class %s", cls.component.name, ErrUnknownOperation, op)
	}
	return entry.fn(cls, args...)
}

// ClassVar returns a class variable.
func (cls *ClassContext) ClassVar(name string) any { return cls.component.ClassVar(name) }

// SetClassVar sets a class variable.
func (cls *ClassContext) SetClassVar(name string, value any) {
	cls.component.SetClassVar(name, value)
}

// ---------------------------------------------------------------------------
// ComponentTable: registry of assembled components
// ---------------------------------------------------------------------------

// ComponentTable holds assembled components. Each name is written once.
// It's safe for concurrent use.
type ComponentTable struct {
	mu         sync.RWMutex
	components map[string]*Component
}

// NewComponentTable creates a new empty component table.
func NewComponentTable() *ComponentTable {
	return &ComponentTable{
		components: make(map[string]*Component),
	}
}

// Register publishes a component. A name can only be registered once.
func (t *ComponentTable) Register(c *Component) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.components[c.name]; exists {
		return assemblyErr(c.name, "", ErrDuplicateComponent)
	}
	t.components[c.name] = c
	return nil
}

// Lookup finds a component by name.
func (t *ComponentTable) Lookup(name string) *Component {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.components[name]
}

// Has returns true if a component with this name is registered.
func (t *ComponentTable) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.components[name]
	return ok
}

// Names returns the registered component names, sorted.
func (t *ComponentTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.components)
}

// Implementers returns the components satisfying an interface, sorted.
func (t *ComponentTable) Implementers(iface string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []string
	for name, c := range t.components {
		if c.Does(iface) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

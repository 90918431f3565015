package component

import (
	"fmt"
	"slices"
	"sync"
)

// ---------------------------------------------------------------------------
// Interface: declared operations, contracts and relationships
// ---------------------------------------------------------------------------

// Interface is a declarative contract: the operations a component exposes,
// the conditions attached to them, and the interfaces it extends.
type Interface struct {
	Name       string
	Object     []string // Operations callable on an instance
	Class      []string // Operations callable on the component itself
	Extends    []string // Parent interfaces, resolved depth-first
	Invariants []Invariant
	Contracts  map[string]*OperationContract
	DocString  string
}

// Invariant must hold before and after every externally invoked operation.
type Invariant struct {
	Description string
	Check       func(self *Self) bool
}

// Condition is a precondition or postcondition on one operation.
type Condition struct {
	Description string
	Check       func(call *Call) bool
}

// OperationContract groups the conditions of one operation.
type OperationContract struct {
	Require []Condition
	Ensure  []Condition
}

// Call is what a Condition sees. Self and Old are nil for class operations;
// Old and Result are only set for postconditions.
type Call struct {
	Component string
	Op        string
	Self      *Self
	Args      []any
	Old       *Snapshot
	Result    any
}

// Arg returns the i'th argument, or nil if there are fewer arguments.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// NewInterface creates an interface declaring the given object operations.
func NewInterface(name string, object ...string) *Interface {
	return &Interface{
		Name:      name,
		Object:    object,
		Contracts: make(map[string]*OperationContract),
	}
}

// WithClass declares class operations.
func (i *Interface) WithClass(ops ...string) *Interface {
	i.Class = append(i.Class, ops...)
	return i
}

// Extend appends parent interfaces.
func (i *Interface) Extend(parents ...string) *Interface {
	i.Extends = append(i.Extends, parents...)
	return i
}

// Invariant registers an invariant.
func (i *Interface) Invariant(description string, check func(self *Self) bool) *Interface {
	i.Invariants = append(i.Invariants, Invariant{Description: description, Check: check})
	return i
}

// Require registers a precondition on op.
func (i *Interface) Require(op, description string, check func(call *Call) bool) *Interface {
	c := i.contract(op)
	c.Require = append(c.Require, Condition{Description: description, Check: check})
	return i
}

// Ensure registers a postcondition on op.
func (i *Interface) Ensure(op, description string, check func(call *Call) bool) *Interface {
	c := i.contract(op)
	c.Ensure = append(c.Ensure, Condition{Description: description, Check: check})
	return i
}

func (i *Interface) contract(op string) *OperationContract {
	if i.Contracts == nil {
		i.Contracts = make(map[string]*OperationContract)
	}
	c := i.Contracts[op]
	if c == nil {
		c = &OperationContract{}
		i.Contracts[op] = c
	}
	return c
}

// Operations returns the number of object and class operations.
func (i *Interface) Operations() int {
	return len(i.Object) + len(i.Class)
}

// HasObject reports whether op is an object operation of this interface.
func (i *Interface) HasObject(op string) bool {
	return slices.Contains(i.Object, op)
}

// HasClass reports whether op is a class operation of this interface.
func (i *Interface) HasClass(op string) bool {
	return slices.Contains(i.Class, op)
}

// Clone returns a copy that shares predicates but no slices or maps.
func (i *Interface) Clone() *Interface {
	out := &Interface{
		Name:       i.Name,
		Object:     slices.Clone(i.Object),
		Class:      slices.Clone(i.Class),
		Extends:    slices.Clone(i.Extends),
		Invariants: slices.Clone(i.Invariants),
		Contracts:  make(map[string]*OperationContract, len(i.Contracts)),
		DocString:  i.DocString,
	}
	for op, c := range i.Contracts {
		out.Contracts[op] = &OperationContract{
			Require: slices.Clone(c.Require),
			Ensure:  slices.Clone(c.Ensure),
		}
	}
	return out
}

// mergeParent copies into i whatever parent declares that i does not.
// Existing entries of i are never replaced.
func (i *Interface) mergeParent(parent *Interface) {
	i.Object = appendMissing(i.Object, parent.Object)
	i.Class = appendMissing(i.Class, parent.Class)

	for _, inv := range parent.Invariants {
		if !slices.ContainsFunc(i.Invariants, func(x Invariant) bool { return x.Description == inv.Description }) {
			i.Invariants = append(i.Invariants, inv)
		}
	}

	for op, pc := range parent.Contracts {
		c := i.contract(op)
		c.Require = mergeConditions(c.Require, pc.Require)
		c.Ensure = mergeConditions(c.Ensure, pc.Ensure)
	}
}

func mergeConditions(child, parent []Condition) []Condition {
	for _, cond := range parent {
		if !slices.ContainsFunc(child, func(x Condition) bool { return x.Description == cond.Description }) {
			child = append(child, cond)
		}
	}
	return child
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

// ---------------------------------------------------------------------------
// InterfaceTable: registry and resolver
// ---------------------------------------------------------------------------

// InterfaceLoader is consulted once when a named interface is missing from
// the table. It may return nil to report that it does not know the name.
type InterfaceLoader func(name string) (*Interface, error)

// ResolvedInterface is a fully flattened interface plus the names of every
// interface it extends, transitively, in depth-first order.
type ResolvedInterface struct {
	Spec      *Interface
	Ancestors []string
}

// InterfaceTable manages registered interfaces by name and flattens them.
// It's safe for concurrent use.
type InterfaceTable struct {
	mu       sync.RWMutex
	specs    map[string]*Interface
	resolved map[string]*ResolvedInterface
	loader   InterfaceLoader
}

// NewInterfaceTable creates a new empty interface table.
func NewInterfaceTable() *InterfaceTable {
	return &InterfaceTable{
		specs:    make(map[string]*Interface),
		resolved: make(map[string]*ResolvedInterface),
	}
}

// SetLoader installs the loader used when a lookup misses.
func (t *InterfaceTable) SetLoader(loader InterfaceLoader) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loader = loader
}

// Register adds an interface to the table.
// Returns the previous interface with this name, or nil.
func (t *InterfaceTable) Register(spec *Interface) *Interface {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.specs[spec.Name]
	t.specs[spec.Name] = spec
	// Anything flattened through the old declaration is stale.
	if old != nil {
		clear(t.resolved)
	}
	return old
}

// Lookup finds an interface by name.
func (t *InterfaceTable) Lookup(name string) *Interface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.specs[name]
}

// Has returns true if an interface with this name is registered.
func (t *InterfaceTable) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.specs[name]
	return ok
}

// Names returns the registered interface names, sorted.
func (t *InterfaceTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.specs)
}

// Len returns the number of registered interfaces.
func (t *InterfaceTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.specs)
}

// Resolve flattens a registered interface. Results are memoized.
func (t *InterfaceTable) Resolve(name string) (*ResolvedInterface, error) {
	t.mu.RLock()
	r, ok := t.resolved[name]
	t.mu.RUnlock()
	if ok {
		return r, nil
	}

	spec, err := t.fetch(name)
	if err != nil {
		return nil, err
	}
	r, err = t.ResolveSpec(spec)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.resolved[name] = r
	t.mu.Unlock()
	return r, nil
}

// ResolveSpec flattens an interface that is not necessarily registered,
// such as one declared inline with a component.
func (t *InterfaceTable) ResolveSpec(spec *Interface) (*ResolvedInterface, error) {
	r, err := t.flatten(spec, nil)
	if err != nil {
		return nil, err
	}
	if r.Spec.Operations() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInterface, spec.Name)
	}
	return r, nil
}

// fetch looks a name up, giving the loader one chance to supply it.
func (t *InterfaceTable) fetch(name string) (*Interface, error) {
	for attempt := 0; ; attempt++ {
		if spec := t.Lookup(name); spec != nil {
			return spec, nil
		}
		t.mu.RLock()
		loader := t.loader
		t.mu.RUnlock()
		if attempt > 0 || loader == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInterface, name)
		}
		spec, err := loader(name)
		if err != nil {
			return nil, fmt.Errorf("loading interface %s: %w", name, err)
		}
		if spec != nil {
			t.Register(spec)
		}
	}
}

// flatten merges spec's ancestors into a copy of spec. The stack holds the
// names currently being flattened; meeting one of them again is a cycle.
func (t *InterfaceTable) flatten(spec *Interface, stack []string) (*ResolvedInterface, error) {
	if slices.Contains(stack, spec.Name) {
		return nil, fmt.Errorf("%w: %s", ErrSelfExtension, spec.Name)
	}
	stack = append(slices.Clone(stack), spec.Name)

	out := spec.Clone()
	var ancestors []string
	for _, parentName := range spec.Extends {
		if slices.Contains(stack, parentName) {
			return nil, fmt.Errorf("%w: %s extends %s", ErrSelfExtension, spec.Name, parentName)
		}
		parent, err := t.fetch(parentName)
		if err != nil {
			return nil, err
		}
		flat, err := t.flatten(parent, stack)
		if err != nil {
			return nil, err
		}
		out.mergeParent(flat.Spec)
		ancestors = appendMissing(ancestors, []string{parentName})
		ancestors = appendMissing(ancestors, flat.Ancestors)
	}
	return &ResolvedInterface{Spec: out, Ancestors: ancestors}, nil
}

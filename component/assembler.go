package component

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mic.component")

// Definition names the parts a component is assembled from. Exactly one of
// Interface (a registered name) or Spec (an inline declaration) is used;
// Interface wins when both are set.
type Definition struct {
	Name           string
	Interface      string
	Spec           *Interface
	Implementation string
	Contracts      *Contracts // nil selects the assembler's default
}

// Assembler merges interfaces and implementations into components and
// publishes them to its component table.
type Assembler struct {
	interfaces *InterfaceTable
	impls      *ImplementationTable
	components *ComponentTable
	contracts  Contracts
	copiers    map[reflect.Type]CopierFunc
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithInterfaces uses an existing interface table.
func WithInterfaces(t *InterfaceTable) Option {
	return func(a *Assembler) { a.interfaces = t }
}

// WithImplementations uses an existing implementation table.
func WithImplementations(t *ImplementationTable) Option {
	return func(a *Assembler) { a.impls = t }
}

// WithComponents uses an existing component table.
func WithComponents(t *ComponentTable) Option {
	return func(a *Assembler) { a.components = t }
}

// WithContracts sets the guards enabled for definitions that do not choose.
func WithContracts(c Contracts) Option {
	return func(a *Assembler) { a.contracts = c }
}

// WithCopier installs the snapshot copier used for slot values of type t,
// for types that hold unexported state and do not implement Snapshotter.
func WithCopier(t reflect.Type, fn CopierFunc) Option {
	return func(a *Assembler) {
		if a.copiers == nil {
			a.copiers = make(map[reflect.Type]CopierFunc)
		}
		a.copiers[t] = fn
	}
}

// NewAssembler creates an assembler. Tables not supplied through options are
// created empty; every guard is enabled by default.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{contracts: AllContracts}
	for _, opt := range opts {
		opt(a)
	}
	if a.interfaces == nil {
		a.interfaces = NewInterfaceTable()
	}
	if a.impls == nil {
		a.impls = NewImplementationTable()
	}
	if a.components == nil {
		a.components = NewComponentTable()
	}
	return a
}

// Interfaces returns the interface table.
func (a *Assembler) Interfaces() *InterfaceTable { return a.interfaces }

// Implementations returns the implementation table.
func (a *Assembler) Implementations() *ImplementationTable { return a.impls }

// Components returns the component table.
func (a *Assembler) Components() *ComponentTable { return a.components }

// MustAssemble is like Assemble but panics on error.
func (a *Assembler) MustAssemble(def Definition) *Component {
	c, err := a.Assemble(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Assemble builds a component from def and publishes it. Assembly is
// all-or-nothing: on error nothing is registered.
func (a *Assembler) Assemble(def Definition) (*Component, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("assemble: component name is required")
	}
	if a.components.Has(def.Name) {
		return nil, assemblyErr(def.Name, "", ErrDuplicateComponent)
	}

	resolved, err := a.resolveInterface(def)
	if err != nil {
		return nil, assemblyErr(def.Name, "", err)
	}
	impl, err := a.resolveImplementation(def)
	if err != nil {
		return nil, err
	}

	toggles := a.contracts
	if def.Contracts != nil {
		toggles = *def.Contracts
	}

	spec := resolved.Spec
	c := &Component{
		name:        def.Name,
		ifaceName:   def.Interface,
		spec:        spec,
		contracts:   toggles,
		object:      make(map[string]*MethodEntry),
		inert:       make(map[string]Func),
		semiprivate: make(map[string]Func),
		class:       make(map[string]*ClassEntry),
		classAll:    make(map[string]*ClassEntry),
		build:       impl.Build,
		copiers:     a.copiers,
		classVars:   make(map[string]any, len(impl.ClassVars)),
	}
	maps.Copy(c.classVars, impl.ClassVars)

	// Partition: semiprivate bodies never reach the public table.
	bodies := make(map[string]Func, len(impl.Operations))
	flags := make(map[string]MethodFlags, len(impl.Operations))
	for name, fn := range impl.Semiprivate {
		if _, dup := impl.Operations[name]; dup {
			return nil, assemblyErr(def.Name, name, fmt.Errorf("%w: both public and semiprivate", ErrOperationConflict))
		}
		if spec.HasObject(name) {
			return nil, assemblyErr(def.Name, name, fmt.Errorf("%w: semiprivate operations cannot be exposed", ErrUnimplemented))
		}
		c.semiprivate[name] = fn
	}
	for name, fn := range impl.Operations {
		if name == OpDoes || name == OpCan {
			return nil, assemblyErr(def.Name, name, fmt.Errorf("%w: built-in operation", ErrOperationConflict))
		}
		bodies[name] = fn
	}

	c.layout, c.attrs = AllocateSlots(impl.Attributes)
	if err := checkInitArgs(def.Name, c.attrs); err != nil {
		return nil, err
	}

	accessors, err := c.wireAccessors(impl, bodies, flags)
	if err != nil {
		return nil, err
	}

	forwarded, plans, err := wireForwards(def.Name, impl, c.attrs, c.layout, accessors)
	if err != nil {
		return nil, err
	}
	for name, fn := range forwarded {
		bodies[name] = fn
		flags[name] |= MethodForwarded
	}
	c.forwards = plans

	if toggles.Invariant {
		c.invariant = compileInvariants(def.Name, spec.Invariants)
	}

	for name, fn := range bodies {
		if !spec.HasObject(name) {
			c.inert[name] = fn
			continue
		}
		internal := guardObject(def.Name, name, spec.Contracts[name], toggles, fn)
		c.object[name] = &MethodEntry{
			Name:     name,
			Flags:    flags[name] | MethodPublic,
			internal: internal,
			external: withInvariant(name, c.invariant, internal),
		}
	}
	c.object[OpDoes] = &MethodEntry{Name: OpDoes, Flags: MethodBuiltin, internal: builtinDoes, external: builtinDoes}
	c.object[OpCan] = &MethodEntry{Name: OpCan, Flags: MethodBuiltin, internal: builtinCan, external: builtinCan}

	for name, fn := range impl.ClassOperations {
		c.classAll[name] = &ClassEntry{
			Name:  name,
			Flags: MethodClass,
			fn:    guardClass(def.Name, name, spec.Contracts[name], toggles, fn),
		}
	}
	if _, custom := c.classAll[OpNew]; !custom {
		c.classAll[OpNew] = &ClassEntry{
			Name:  OpNew,
			Flags: MethodClass | MethodDefault,
			fn:    guardClass(def.Name, OpNew, spec.Contracts[OpNew], toggles, defaultConstructor),
		}
	}
	for name, e := range c.classAll {
		if name == OpNew || spec.HasClass(name) {
			e.Flags |= MethodPublic
			c.class[name] = e
		}
	}

	if err := c.verify(); err != nil {
		return nil, err
	}

	c.does = doesSet(def, resolved)

	if err := a.components.Register(c); err != nil {
		return nil, err
	}
	if def.Interface == "" && def.Spec != nil && !a.interfaces.Has(def.Name) {
		inline := def.Spec.Clone()
		inline.Name = def.Name
		a.interfaces.Register(inline)
	}

	log.Infof("assembled %s: %d operations, %d slots, does %v", c.name, len(c.object), c.layout.Len(), c.does)
	return c, nil
}

func (a *Assembler) resolveInterface(def Definition) (*ResolvedInterface, error) {
	if def.Interface != "" {
		return a.interfaces.Resolve(def.Interface)
	}
	if def.Spec == nil {
		return nil, fmt.Errorf("%w: no interface declared", ErrInvalidInterface)
	}
	spec := def.Spec.Clone()
	spec.Name = def.Name
	return a.interfaces.ResolveSpec(spec)
}

func (a *Assembler) resolveImplementation(def Definition) (*Implementation, error) {
	if def.Implementation == "" {
		return nil, assemblyErr(def.Name, "", ErrNoImplementation)
	}
	if def.Implementation == def.Name {
		return nil, assemblyErr(def.Name, def.Implementation, ErrSelfImplementation)
	}
	impl, err := a.impls.Lookup(def.Implementation)
	if err != nil {
		return nil, assemblyErr(def.Name, "", err)
	}
	return impl, nil
}

// wireAccessors generates readers and writers. An accessor named in the
// interface becomes a public operation; any other becomes semiprivate.
func (c *Component) wireAccessors(impl *Implementation, bodies map[string]Func, flags map[string]MethodFlags) (map[string]bool, error) {
	made := make(map[string]bool)
	install := func(name string, fn Func) error {
		if impl.implemented(name) {
			return assemblyErr(c.name, name, ErrAccessorOverride)
		}
		if made[name] {
			return assemblyErr(c.name, name, fmt.Errorf("%w: accessor", ErrOperationConflict))
		}
		made[name] = true
		if c.spec.HasObject(name) {
			bodies[name] = fn
			flags[name] = MethodAccessor
			return nil
		}
		log.Debugf("%s: accessor %s is not in the interface, installing as semiprivate", c.name, name)
		c.semiprivate[name] = fn
		return nil
	}

	for i, attr := range c.attrs {
		if attr.Reader != "" && attr.Reader == attr.Writer {
			if err := install(attr.Reader, property(i, attr.Name)); err != nil {
				return nil, err
			}
			continue
		}
		if attr.Reader != "" {
			if err := install(attr.Reader, reader(i)); err != nil {
				return nil, err
			}
		}
		if attr.Writer != "" {
			if err := install(attr.Writer, writer(i, attr.Name)); err != nil {
				return nil, err
			}
		}
	}
	return made, nil
}

func reader(offset int) Func {
	return func(self *Self, args ...any) (any, error) {
		return self.obj.slots[offset], nil
	}
}

func writer(offset int, attr string) Func {
	return func(self *Self, args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("writer for %s: want 1 argument, got %d", attr, len(args))
		}
		self.obj.slots[offset] = args[0]
		return nil, nil
	}
}

// property reads with no arguments and writes with one.
func property(offset int, attr string) Func {
	get, set := reader(offset), writer(offset, attr)
	return func(self *Self, args ...any) (any, error) {
		if len(args) == 0 {
			return get(self)
		}
		return set(self, args...)
	}
}

// verify checks that every operation of the flattened interface is callable.
func (c *Component) verify() error {
	var missing []string
	for _, op := range c.spec.Object {
		if _, ok := c.object[op]; !ok {
			missing = append(missing, op)
		}
	}
	for _, op := range c.spec.Class {
		if _, ok := c.class[op]; !ok {
			missing = append(missing, "class "+op)
		}
	}
	if len(missing) > 0 {
		return assemblyErr(c.name, strings.Join(missing, ", "), ErrUnimplemented)
	}
	return nil
}

func doesSet(def Definition, r *ResolvedInterface) []string {
	var does []string
	if def.Interface != "" && def.Interface != def.Name {
		does = append(does, def.Interface)
	}
	does = appendMissing(does, []string{def.Name})
	return appendMissing(does, r.Ancestors)
}

// builtinDoes answers with every satisfied interface, or with a boolean
// when given a name.
func builtinDoes(self *Self, args ...any) (any, error) {
	c := self.obj.component
	if len(args) == 0 {
		return c.Interfaces(), nil
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s.does: want interface name, got %T", c.name, args[0])
	}
	return c.Does(name), nil
}

// builtinCan answers with every public operation, or with a boolean when
// given a name.
func builtinCan(self *Self, args ...any) (any, error) {
	c := self.obj.component
	if len(args) == 0 {
		return c.Operations(), nil
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s.can: want operation name, got %T", c.name, args[0])
	}
	return c.Can(name), nil
}

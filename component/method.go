package component

import "sort"

// Func is the body of an object operation. The self handle gives the body
// access to the instance's slots and to internal dispatch.
type Func func(self *Self, args ...any) (any, error)

// ClassFunc is the body of a class operation, invoked on the component
// rather than on an instance. The constructor is a class operation.
type ClassFunc func(cls *ClassContext, args ...any) (any, error)

// BuildFunc runs after the default constructor has populated the slots. It
// receives the raw constructor argument: an Args mapping, a single
// positional value, a []any of positional values, or nil.
type BuildFunc func(self *Self, arg any) error

// Receiver is implemented by values that dispatch operations by name.
// *Object implements it; forwarding prefers it over reflection.
type Receiver interface {
	Call(op string, args ...any) (any, error)
}

// MethodFlags describes where an operation came from and who can reach it.
type MethodFlags uint32

const (
	MethodPublic      MethodFlags = 1 << iota // Named in the flattened interface
	MethodSemiprivate                         // Reachable through the Semiprivate handle only
	MethodClass                               // Invoked on the component, not an instance
	MethodAccessor                            // Generated reader or writer
	MethodForwarded                           // Generated by the delegation wirer
	MethodBuiltin                             // does / can
	MethodDefault                             // Synthesized default constructor
)

// Has reports whether all bits of f2 are set.
func (f MethodFlags) Has(f2 MethodFlags) bool { return f&f2 == f2 }

// MethodEntry is one slot of a component's object-level method table.
type MethodEntry struct {
	Name  string
	Flags MethodFlags

	// internal runs pre/post guards only; used by Self.Call.
	internal Func
	// external also runs the invariant guard; used by Object.Call.
	external Func
}

// ClassEntry is one slot of a component's class-level method table.
type ClassEntry struct {
	Name  string
	Flags MethodFlags
	fn    ClassFunc
}

// Built-in operation names present on every component.
const (
	OpDoes = "does"
	OpCan  = "can"
	OpNew  = "new"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

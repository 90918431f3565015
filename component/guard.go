package component

// Contracts toggles each kind of guard for a component.
type Contracts struct {
	Pre       bool `toml:"pre" yaml:"pre" cbor:"pre"`
	Post      bool `toml:"post" yaml:"post" cbor:"post"`
	Invariant bool `toml:"invariant" yaml:"invariant" cbor:"invariant"`
}

// AllContracts enables every guard.
var AllContracts = Contracts{Pre: true, Post: true, Invariant: true}

// invariantGuard checks every invariant of a component against an instance.
// op is only used to name the call site in the error.
type invariantGuard func(self *Self, op string) error

// compileInvariants returns nil when there is nothing to check.
func compileInvariants(component string, invs []Invariant) invariantGuard {
	if len(invs) == 0 {
		return nil
	}
	return func(self *Self, op string) error {
		for _, inv := range invs {
			if !inv.Check(self) {
				log.Warningf("%s: invariant violated after %q: %s", component, op, inv.Description)
				return &ContractError{
					Kind:        KindInvariant,
					Component:   component,
					Operation:   op,
					Description: inv.Description,
				}
			}
		}
		return nil
	}
}

// checkConditions stops at the first failing condition.
func checkConditions(kind ContractKind, call *Call, conds []Condition) error {
	for _, cond := range conds {
		if !cond.Check(call) {
			log.Warningf("%s.%s: %s failed: %s", call.Component, call.Op, kind, cond.Description)
			return &ContractError{
				Kind:        kind,
				Component:   call.Component,
				Operation:   call.Op,
				Description: cond.Description,
			}
		}
	}
	return nil
}

// guardObject wraps an object operation with its pre- and postconditions.
// The precondition runs first, then the snapshot is taken, then the body.
func guardObject(component, op string, c *OperationContract, toggles Contracts, body Func) Func {
	if c == nil {
		return body
	}
	fn := body
	if toggles.Post && len(c.Ensure) > 0 {
		inner := fn
		fn = func(self *Self, args ...any) (any, error) {
			old, err := takeSnapshot(self.obj)
			if err != nil {
				return nil, err
			}
			result, err := inner(self, args...)
			if err != nil {
				return result, err
			}
			call := &Call{Component: component, Op: op, Self: self, Args: args, Old: old, Result: result}
			if err := checkConditions(KindPostcondition, call, c.Ensure); err != nil {
				return nil, err
			}
			return result, nil
		}
	}
	if toggles.Pre && len(c.Require) > 0 {
		inner := fn
		fn = func(self *Self, args ...any) (any, error) {
			call := &Call{Component: component, Op: op, Self: self, Args: args}
			if err := checkConditions(KindPrecondition, call, c.Require); err != nil {
				return nil, err
			}
			return inner(self, args...)
		}
	}
	return fn
}

// guardClass wraps a class operation. Class operations have no instance, so
// conditions see a nil Self and a nil Old.
func guardClass(component, op string, c *OperationContract, toggles Contracts, body ClassFunc) ClassFunc {
	if c == nil {
		return body
	}
	fn := body
	if toggles.Post && len(c.Ensure) > 0 {
		inner := fn
		fn = func(cls *ClassContext, args ...any) (any, error) {
			result, err := inner(cls, args...)
			if err != nil {
				return result, err
			}
			call := &Call{Component: component, Op: op, Args: args, Result: result}
			if err := checkConditions(KindPostcondition, call, c.Ensure); err != nil {
				return nil, err
			}
			return result, nil
		}
	}
	if toggles.Pre && len(c.Require) > 0 {
		inner := fn
		fn = func(cls *ClassContext, args ...any) (any, error) {
			call := &Call{Component: component, Op: op, Args: args}
			if err := checkConditions(KindPrecondition, call, c.Require); err != nil {
				return nil, err
			}
			return inner(cls, args...)
		}
	}
	return fn
}

// withInvariant checks the invariants before and after body. It is only
// installed on the external path; calls made through Self skip it.
func withInvariant(op string, guard invariantGuard, body Func) Func {
	if guard == nil {
		return body
	}
	return func(self *Self, args ...any) (any, error) {
		if err := guard(self, op); err != nil {
			return nil, err
		}
		result, err := body(self, args...)
		if err != nil {
			return result, err
		}
		if err := guard(self, op); err != nil {
			return nil, err
		}
		return result, nil
	}
}

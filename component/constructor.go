package component

import "fmt"

// Args is the keyword-argument mapping accepted by the default constructor.
type Args = map[string]any

// constructorArg normalizes the constructor's arguments into the single
// value handed to the build hook: nil, an Args mapping, one positional
// value, or a []any of positional values.
func constructorArg(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	seq := make([]any, len(args))
	copy(seq, args)
	return seq
}

// construct allocates an instance, applies keyword init args, runs the
// build hook and checks the invariants once.
func (c *Component) construct(args []any) (*Object, error) {
	arg := constructorArg(args)
	obj := c.allocate()

	if kw, ok := arg.(Args); ok {
		for i, a := range c.attrs {
			if a.InitArg == "" {
				continue
			}
			if v, ok := kw[a.InitArg]; ok {
				obj.slots[i] = v
			}
		}
	}

	if c.build != nil {
		if err := c.build(obj.self, arg); err != nil {
			return nil, fmt.Errorf("%s: build: %w", c.name, err)
		}
	}

	if c.invariant != nil && c.contracts.Invariant {
		if err := c.invariant(obj.self, OpNew); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// defaultConstructor is installed as "new" unless the implementation
// declares its own.
func defaultConstructor(cls *ClassContext, args ...any) (any, error) {
	obj, err := cls.Construct(args...)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// checkInitArgs rejects two attributes sharing one init arg.
func checkInitArgs(component string, attrs []Attribute) error {
	owners := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.InitArg == "" {
			continue
		}
		if prev, ok := owners[a.InitArg]; ok {
			return assemblyErr(component, a.InitArg,
				fmt.Errorf("%w: attributes %s and %s", ErrDuplicateInitArg, prev, a.Name))
		}
		owners[a.InitArg] = a.Name
	}
	return nil
}

package component

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// forwardPlan is one forwarded operation after conflict resolution.
type forwardPlan struct {
	name    string
	target  string // operation name on the target value
	offsets []int  // slots holding the targets, in declaration order
}

// wireForwards builds a body for every forwarded operation.
//
// Attribute-level forwards are collected first, in attribute order, then the
// implementation-level ones. Forwarding a name that already has a body is
// fatal, as is a forward missing its targets or its operations; a name
// claimed by an earlier forward keeps that earlier forward.
func wireForwards(component string, impl *Implementation, attrs []Attribute, layout *SlotLayout, accessors map[string]bool) (map[string]Func, []forwardPlan, error) {
	var decls []Forward
	for _, a := range attrs {
		for _, f := range a.Forwards {
			if len(f.To) == 0 {
				f.To = []string{a.Name}
			}
			decls = append(decls, f)
		}
	}
	decls = append(decls, impl.Forwards...)

	bodies := make(map[string]Func)
	var plans []forwardPlan
	for _, f := range decls {
		switch {
		case len(f.To) == 0:
			return nil, nil, assemblyErr(component, strings.Join(f.Send, ", "), fmt.Errorf("%w: forward has no target", ErrInvalidForward))
		case len(f.Send) == 0:
			return nil, nil, assemblyErr(component, strings.Join(f.To, ", "), fmt.Errorf("%w: forward sends no operations", ErrInvalidForward))
		}
		offsets := make([]int, 0, len(f.To))
		for _, attr := range f.To {
			i := layout.Index(attr)
			if i < 0 {
				return nil, nil, assemblyErr(component, attr, fmt.Errorf("%w: forwarding target", ErrUnknownAttribute))
			}
			offsets = append(offsets, i)
		}

		for i, name := range f.Send {
			if impl.implemented(name) || accessors[name] {
				return nil, nil, assemblyErr(component, name, ErrDelegateOverride)
			}
			if _, claimed := bodies[name]; claimed {
				log.Debugf("%s: %s already forwarded, ignoring later declaration to %v", component, name, f.To)
				continue
			}
			target := name
			if i < len(f.As) && f.As[i] != "" {
				target = f.As[i]
			}
			p := forwardPlan{name: name, target: target, offsets: offsets}
			plans = append(plans, p)
			bodies[name] = p.body()
		}
	}
	return bodies, plans, nil
}

// body reads the target slots at call time, so replacing a slot value
// reroutes later calls.
func (p forwardPlan) body() Func {
	return func(self *Self, args ...any) (any, error) {
		if len(p.offsets) == 1 {
			return send(self.obj.slots[p.offsets[0]], p.target, args)
		}
		results := make([]any, 0, len(p.offsets))
		for _, off := range p.offsets {
			r, err := send(self.obj.slots[off], p.target, args)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
		return results, nil
	}
}

// send invokes op on recv with args unchanged.
func send(recv any, op string, args []any) (any, error) {
	switch r := recv.(type) {
	case nil:
		return nil, fmt.Errorf("%w: cannot send %s", ErrNilTarget, op)
	case Receiver:
		return r.Call(op, args...)
	}
	return invokeMethod(recv, op, args)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invokeMethod calls an exported Go method by name. "push" also matches a
// method named Push.
func invokeMethod(recv any, op string, args []any) (any, error) {
	v := reflect.ValueOf(recv)
	m := v.MethodByName(op)
	if !m.IsValid() {
		m = v.MethodByName(exportedName(op))
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %s", ErrUnknownOperation, recv, op)
	}

	mt := m.Type()
	fixed := mt.NumIn()
	if mt.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("%T.%s: want at least %d arguments, got %d", recv, op, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("%T.%s: want %d arguments, got %d", recv, op, fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if i >= fixed {
			pt = mt.In(fixed).Elem()
		} else {
			pt = mt.In(i)
		}
		av, err := argValue(a, pt)
		if err != nil {
			return nil, fmt.Errorf("%T.%s: argument %d: %w", recv, op, i, err)
		}
		in[i] = av
	}

	out := m.Call(in)
	var err error
	if n := len(out); n > 0 && mt.Out(n-1) == errorType {
		if e := out[n-1].Interface(); e != nil {
			err = e.(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	}
	results := make([]any, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}
	return results, err
}

func argValue(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", want)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if av.Type().ConvertibleTo(want) && av.Kind() != reflect.String && want.Kind() != reflect.String {
		if cv, ok := convertExact(av, want); ok {
			return cv, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", a, want)
}

// convertExact converts av to want only if no value is lost: numbers must
// survive the round trip with their sign, so 3.7 never becomes 3 and 300
// never becomes an int8.
func convertExact(av reflect.Value, want reflect.Type) (reflect.Value, bool) {
	cv := av.Convert(want)
	if !isNumber(av.Kind()) || !isNumber(want.Kind()) {
		return cv, true
	}
	if isFloat(av.Kind()) && isFloat(want.Kind()) && math.IsNaN(av.Float()) {
		return cv, true
	}
	if !cv.Convert(av.Type()).Equal(av) {
		return reflect.Value{}, false
	}
	switch {
	case isInt(av.Kind()) && isUint(want.Kind()) && av.Int() < 0:
		return reflect.Value{}, false
	case isUint(av.Kind()) && isInt(want.Kind()) && cv.Int() < 0:
		return reflect.Value{}, false
	}
	return cv, true
}

func isInt(k reflect.Kind) bool { return k >= reflect.Int && k <= reflect.Int64 }

func isUint(k reflect.Kind) bool { return k >= reflect.Uint && k <= reflect.Uintptr }

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k) || k == reflect.Complex64 || k == reflect.Complex128
}

func exportedName(op string) string {
	r, size := utf8.DecodeRuneInString(op)
	if r == utf8.RuneError {
		return op
	}
	return string(unicode.ToUpper(r)) + op[size:]
}

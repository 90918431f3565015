package component

import (
	"container/list"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"
)

func TestPreconditionSkipsBody(t *testing.T) {
	a := newQueueAssembler(t)
	c := mustAssemble(t, a, Definition{Name: "BoundedQueue", Interface: "Queue", Implementation: "QueueImpl"})
	q := mustNew(t, c)

	_, err := q.Call("push", 1, 2)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("push(1, 2) error = %v, want ErrPrecondition", err)
	}
	if errors.Is(err, ErrPostcondition) || errors.Is(err, ErrInvariant) {
		t.Errorf("precondition error also matches another kind: %v", err)
	}
	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not a *ContractError", err)
	}
	if ce.Operation != "push" || ce.Description != "one item at a time" {
		t.Errorf("violation = %+v", ce)
	}
	if got := mustCall(t, q, "size"); got != 0 {
		t.Errorf("size after rejected push = %v, want 0", got)
	}
}

// bagAssembler declares a bag whose add must grow it by exactly one. The
// implementation is told whether to misbehave by adding twice.
func bagAssembler(t *testing.T, toggles *Contracts) *Component {
	t.Helper()
	a := NewAssembler()
	a.Interfaces().Register(NewInterface("Bag", "add", "size").
		Ensure("add", "size grows by one", func(call *Call) bool {
			before := len(call.Old.Get("items").([]any))
			after := len(call.Self.Get("items").([]any))
			return after == before+1
		}).
		Ensure("add", "returns the new size", func(call *Call) bool {
			return call.Result == len(call.Self.Get("items").([]any))
		}))
	a.Implementations().Register(NewImplementation("BagImpl").
		Has(Attribute{Name: "items", DefaultFunc: func() any { return []any{} }}).
		Has(Attribute{Name: "twice", InitArg: "twice", Default: false}).
		Method("add", func(self *Self, args ...any) (any, error) {
			items := append(self.Get("items").([]any), args[0])
			if self.Get("twice").(bool) {
				items = append(items, args[0])
			}
			return len(items), self.Set("items", items)
		}).
		Method("size", func(self *Self, args ...any) (any, error) {
			return len(self.Get("items").([]any)), nil
		}))
	return mustAssemble(t, a, Definition{Name: "Bag", Interface: "Bag", Implementation: "BagImpl", Contracts: toggles})
}

func TestPostconditionSeesOldState(t *testing.T) {
	c := bagAssembler(t, nil)

	good := mustNew(t, c)
	for i := 1; i <= 3; i++ {
		if got := mustCall(t, good, "add", i); got != i {
			t.Errorf("add(%d) = %v, want %d", i, got, i)
		}
	}

	bad := mustNew(t, c, Args{"twice": true})
	_, err := bad.Call("add", "x")
	if !errors.Is(err, ErrPostcondition) {
		t.Fatalf("add on misbehaving bag error = %v, want ErrPostcondition", err)
	}
	var ce *ContractError
	if errors.As(err, &ce) && ce.Description != "size grows by one" {
		t.Errorf("failed condition = %q, want the first one", ce.Description)
	}
	// Side effects of the body are not rolled back.
	if got := mustCall(t, bad, "size"); got != 2 {
		t.Errorf("size after failed postcondition = %v, want 2", got)
	}
}

func TestPostconditionsDisabled(t *testing.T) {
	c := bagAssembler(t, &Contracts{Pre: true, Invariant: true})
	bad := mustNew(t, c, Args{"twice": true})

	if got := mustCall(t, bad, "add", "x"); got != 2 {
		t.Errorf("add = %v, want 2", got)
	}
	if c.Contracts().Post {
		t.Error("Contracts().Post = true, want false")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	a := NewAssembler()
	a.Implementations().Register(NewImplementation("Holder").
		Has(Attribute{Name: "tags", DefaultFunc: func() any { return map[string]int{"a": 1} }}).
		Has(Attribute{Name: "child"}).
		Method("noop", func(self *Self, args ...any) (any, error) { return nil, nil }))
	c := mustAssemble(t, a, Definition{Name: "Holder", Spec: NewInterface("", "noop"), Implementation: "Holder"})

	parent := mustNew(t, c)
	child := mustNew(t, c)
	parent.self.Set("child", child)
	child.self.Set("child", parent)

	snap, err := takeSnapshot(parent)
	if err != nil {
		t.Fatalf("takeSnapshot failed: %v", err)
	}
	parent.self.Get("tags").(map[string]int)["a"] = 99

	if got := snap.Get("tags").(map[string]int)["a"]; got != 1 {
		t.Errorf("snapshot tags[a] = %d, want 1", got)
	}
	nested, ok := snap.Get("child").(*Snapshot)
	if !ok {
		t.Fatalf("child slot captured as %T, want *Snapshot", snap.Get("child"))
	}
	if nested.Get("child") != snap {
		t.Error("cycle through child was not captured as the same snapshot")
	}
	if snap.Component() != "Holder" || snap.Len() != 2 {
		t.Errorf("snapshot = %s with %d slots", snap.Component(), snap.Len())
	}
	if snap.Get("missing") != nil || snap.Slot(5) != nil {
		t.Error("out of range lookups should be nil")
	}
}

// ledger keeps its entries private and copies itself for snapshots.
type ledger struct {
	entries []int
}

func (l *ledger) Snapshot() (any, error) {
	return &ledger{entries: slices.Clone(l.entries)}, nil
}

// listAssembler declares a component whose push appends to a Go value held
// in the "v" slot and must grow it by one. olds records the pre-call
// length each postcondition saw.
func listAssembler(t *testing.T, value func() any, length func(any) int, olds *[]int, opts ...Option) *Component {
	t.Helper()
	a := NewAssembler(opts...)
	a.Interfaces().Register(NewInterface("Growing", "push").
		Ensure("push", "grows by one", func(call *Call) bool {
			before := length(call.Old.Get("v"))
			*olds = append(*olds, before)
			return length(call.Self.Get("v")) == before+1
		}))
	a.Implementations().Register(NewImplementation("GrowingImpl").
		Has(Attribute{Name: "v", DefaultFunc: value}).
		Has(Attribute{Name: "at", DefaultFunc: func() any { return time.Now() }}).
		Method("push", func(self *Self, args ...any) (any, error) {
			switch v := self.Get("v").(type) {
			case *list.List:
				v.PushBack(args[0])
			case *ledger:
				v.entries = append(v.entries, args[0].(int))
			case []any:
				v[0].(*list.List).PushBack(args[0])
			}
			return nil, nil
		}))
	return mustAssemble(t, a, Definition{Name: "Growing", Interface: "Growing", Implementation: "GrowingImpl"})
}

func TestSnapshotUnexportedState(t *testing.T) {
	listLen := func(v any) int { return v.(*list.List).Len() }
	copyList := func(v any) (any, error) {
		out := list.New()
		for e := v.(*list.List).Front(); e != nil; e = e.Next() {
			out.PushBack(e.Value)
		}
		return out, nil
	}

	tests := []struct {
		name    string
		value   func() any
		length  func(any) int
		opts    []Option
		wantErr bool
	}{
		{
			name:    "refused without a copier",
			value:   func() any { return list.New() },
			length:  listLen,
			wantErr: true,
		},
		{
			name:    "refused when nested in a slice",
			value:   func() any { return []any{list.New()} },
			length:  func(v any) int { return v.([]any)[0].(*list.List).Len() },
			wantErr: true,
		},
		{
			name:   "registered copier",
			value:  func() any { return list.New() },
			length: listLen,
			opts:   []Option{WithCopier(reflect.TypeOf(list.New()), copyList)},
		},
		{
			name:   "value copies itself",
			value:  func() any { return &ledger{} },
			length: func(v any) int { return len(v.(*ledger).entries) },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var olds []int
			obj := mustNew(t, listAssembler(t, tc.value, tc.length, &olds, tc.opts...))

			for i := 0; i < 2; i++ {
				_, err := obj.Call("push", i)
				if tc.wantErr {
					if !errors.Is(err, ErrSnapshot) {
						t.Fatalf("push error = %v, want ErrSnapshot", err)
					}
					continue
				}
				if err != nil {
					t.Fatalf("push %d failed: %v", i, err)
				}
			}
			if !tc.wantErr && !slices.Equal(olds, []int{0, 1}) {
				t.Errorf("postconditions saw old lengths %v, want [0 1]", olds)
			}
			if tc.wantErr && len(olds) != 0 {
				t.Errorf("body or postcondition ran without a snapshot: %v", olds)
			}
		})
	}
}

// TestInvariantOnlyAtExternalBoundary counts invariant checks and lets an
// operation break the invariant temporarily while calling a sibling.
func TestInvariantOnlyAtExternalBoundary(t *testing.T) {
	checks := 0
	a := NewAssembler()
	a.Interfaces().Register(NewInterface("Balance", "transfer", "settle", "value").
		Invariant("value is never negative", func(self *Self) bool {
			checks++
			return self.Get("value").(int) >= 0
		}))
	a.Implementations().Register(NewImplementation("BalanceImpl").
		Has(Attribute{Name: "value", Default: 0}).
		Method("transfer", func(self *Self, args ...any) (any, error) {
			self.Set("value", self.Get("value").(int)-args[0].(int))
			return self.Call("settle", args[0])
		}).
		Method("settle", func(self *Self, args ...any) (any, error) {
			return nil, self.Set("value", self.Get("value").(int)+args[0].(int))
		}).
		Method("value", func(self *Self, args ...any) (any, error) {
			return self.Get("value"), nil
		}))
	c := mustAssemble(t, a, Definition{Name: "Balance", Interface: "Balance", Implementation: "BalanceImpl"})

	obj := mustNew(t, c)
	if checks != 1 {
		t.Fatalf("checks after construction = %d, want 1", checks)
	}

	mustCall(t, obj, "transfer", 5)
	if checks != 3 {
		t.Errorf("checks after transfer = %d, want 3 (before and after, none for settle)", checks)
	}
	mustCall(t, obj, "value")
	if checks != 5 {
		t.Errorf("checks after value = %d, want 5", checks)
	}
}

func TestInvariantViolationAfterOperation(t *testing.T) {
	a := NewAssembler()
	a.Interfaces().Register(NewInterface("Gauge", "set").
		Invariant("level is within 0..10", func(self *Self) bool {
			n := self.Get("level").(int)
			return n >= 0 && n <= 10
		}))
	a.Implementations().Register(NewImplementation("GaugeImpl").
		Has(Attribute{Name: "level", Default: 0, InitArg: "level"}).
		Method("set", func(self *Self, args ...any) (any, error) {
			return nil, self.Set("level", args[0])
		}))
	c := mustAssemble(t, a, Definition{Name: "Gauge", Interface: "Gauge", Implementation: "GaugeImpl"})

	g := mustNew(t, c)
	_, err := g.Call("set", 11)
	var ce *ContractError
	if !errors.As(err, &ce) || ce.Kind != KindInvariant || ce.Operation != "set" {
		t.Fatalf("set(11) error = %v, want invariant violation after set", err)
	}

	_, err = c.New(Args{"level": 42})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("New(level=42) error = %v, want ErrInvariant", err)
	}
	if errors.As(err, &ce) && ce.Operation != OpNew {
		t.Errorf("construction violation operation = %q, want new", ce.Operation)
	}

	// Disabled invariants let both through.
	a.Implementations().Register(NewImplementation("LooseGauge").
		Has(Attribute{Name: "level", Default: 0, InitArg: "level"}).
		Method("set", func(self *Self, args ...any) (any, error) {
			return nil, self.Set("level", args[0])
		}))
	loose := mustAssemble(t, a, Definition{
		Name:           "LooseGauge",
		Interface:      "Gauge",
		Implementation: "LooseGauge",
		Contracts:      &Contracts{Pre: true, Post: true},
	})
	mustCall(t, mustNew(t, loose, Args{"level": 42}), "set", 11)
}

func TestAssemblerDefaultContracts(t *testing.T) {
	a := NewAssembler(WithContracts(Contracts{}))
	a.Interfaces().Register(queueInterface())
	a.Implementations().Register(queueImplementation("QueueImpl"))
	c := mustAssemble(t, a, Definition{Name: "FastQueue", Interface: "Queue", Implementation: "QueueImpl"})

	q := mustNew(t, c, Args{"max_size": -1})
	if _, err := q.Call("push", 1, 2); err != nil {
		t.Fatalf("push with guards disabled failed: %v", err)
	}
}

func TestClassOperationContracts(t *testing.T) {
	a := NewAssembler()
	a.Interfaces().Register(NewInterface("Named", "name").
		WithClass("named").
		Require("named", "a name is given", func(call *Call) bool {
			s, ok := call.Arg(0).(string)
			return ok && s != ""
		}).
		Ensure("named", "returns an instance", func(call *Call) bool {
			_, ok := call.Result.(*Object)
			return ok && call.Self == nil && call.Old == nil
		}))
	a.Implementations().Register(NewImplementation("NamedImpl").
		Has(Attribute{Name: "name", Reader: "name", InitArg: "name"}).
		ClassMethod("named", func(cls *ClassContext, args ...any) (any, error) {
			return cls.Construct(Args{"name": args[0]})
		}))
	c := mustAssemble(t, a, Definition{Name: "Named", Interface: "Named", Implementation: "NamedImpl"})

	if _, err := c.CallClass("named"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("named() error = %v, want ErrPrecondition", err)
	}
	result, err := c.CallClass("named", "widget")
	if err != nil {
		t.Fatalf("named(widget) failed: %v", err)
	}
	if got := mustCall(t, result.(*Object), "name"); got != "widget" {
		t.Errorf("name = %v, want widget", got)
	}
}

func TestContractKindString(t *testing.T) {
	tests := []struct {
		kind ContractKind
		want string
	}{
		{KindPrecondition, "precondition"},
		{KindPostcondition, "postcondition"},
		{KindInvariant, "invariant"},
		{ContractKind(9), "ContractKind(9)"},
	}
	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", int(tc.kind), got, tc.want)
		}
	}
}

package manifest

import (
	"errors"
	"slices"
	"testing"

	"github.com/manwar/Mic/component"
)

func queuePredicates() *Predicates {
	return NewPredicates().
		Invariant("size never exceeds max_size", func(self *component.Self) bool {
			return len(self.Get("items").([]any)) <= self.Get("max_size").(int)
		}).
		Condition("one item at a time", func(call *component.Call) bool {
			return len(call.Args) == 1
		})
}

func queueImplementation() *component.Implementation {
	return component.NewImplementation("QueueImpl").
		Has(component.Attribute{Name: "items", DefaultFunc: func() any { return []any{} }}).
		Has(component.Attribute{Name: "max_size", Default: 3, InitArg: "max_size"}).
		Method("push", func(self *component.Self, args ...any) (any, error) {
			items := self.Get("items").([]any)
			if len(items) >= self.Get("max_size").(int) {
				items = items[1:]
			}
			return nil, self.Set("items", append(items, args[0]))
		}).
		Method("pop", func(self *component.Self, args ...any) (any, error) {
			items := self.Get("items").([]any)
			if len(items) == 0 {
				return nil, nil
			}
			return items[0], self.Set("items", items[1:])
		}).
		Method("size", func(self *component.Self, args ...any) (any, error) {
			return len(self.Get("items").([]any)), nil
		})
}

func TestInterfaceBindsPredicates(t *testing.T) {
	m, err := Parse([]byte(queueManifest), TOML)
	if err != nil {
		t.Fatal(err)
	}

	spec, err := m.Interface("Queue", queuePredicates())
	if err != nil {
		t.Fatalf("Interface failed: %v", err)
	}
	if spec.DocString != "FIFO with a capacity" || !slices.Equal(spec.Extends, []string{"Sized"}) {
		t.Errorf("spec = %+v", spec)
	}
	if len(spec.Invariants) != 1 || len(spec.Contracts["push"].Require) != 1 {
		t.Errorf("bound %d invariants and %v", len(spec.Invariants), spec.Contracts)
	}

	_, err = m.Interface("Queue", NewPredicates())
	if !errors.Is(err, ErrUnboundPredicate) {
		t.Errorf("Interface with empty predicates error = %v, want ErrUnboundPredicate", err)
	}
	if _, err := m.Interface("Nope", nil); !errors.Is(err, component.ErrInvalidInterface) {
		t.Errorf("Interface(Nope) error = %v, want ErrInvalidInterface", err)
	}
}

func TestAssembleFromManifest(t *testing.T) {
	m, err := Parse([]byte(queueManifest), TOML)
	if err != nil {
		t.Fatal(err)
	}

	a := component.NewAssembler()
	a.Implementations().Register(queueImplementation())
	components, err := m.Assemble(a, queuePredicates())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(components) != 1 {
		t.Fatalf("assembled %d components, want 1", len(components))
	}

	c := components[0]
	if !c.Does("Sized") || !c.Does("Queue") {
		t.Errorf("does = %v", c.Interfaces())
	}
	// pre = false for this component, so two-argument pushes get through.
	q, err := c.New(component.Args{"max_size": 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Call("push", 1, 2); err != nil {
		t.Errorf("push(1, 2) with preconditions off failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := q.Call("push", i); err != nil {
			t.Fatal(err)
		}
	}
	if size, _ := q.Call("size"); size != 3 {
		t.Errorf("size = %v, want 3", size)
	}

	// The invariant is bound and on: a queue that starts over capacity is
	// rejected.
	if _, err := c.New(component.Args{"max_size": -1}); !errors.Is(err, component.ErrInvariant) {
		t.Errorf("New(max_size=-1) error = %v, want ErrInvariant", err)
	}
}

func TestAssembleStopsAtFirstFailure(t *testing.T) {
	m, err := Parse([]byte(queueManifest), TOML)
	if err != nil {
		t.Fatal(err)
	}
	a := component.NewAssembler()
	_, err = m.Assemble(a, queuePredicates())
	if !errors.Is(err, component.ErrNoImplementation) {
		t.Fatalf("Assemble without implementations error = %v, want ErrNoImplementation", err)
	}
}

func TestDryRun(t *testing.T) {
	src := `
[interfaces.Shape]
object = ["area"]
class = ["unit"]
invariants = ["area is positive"]

[interfaces.Loop]
object = ["spin"]
extends = ["Loop"]

[interfaces.Empty]

[components.Square]
interface = "Shape"
implementation = "SquareImpl"

[components.Circle]
interface = "Shape"
implementation = "CircleImpl"
[components.Circle.contracts]
invariant = false

[components.Spinner]
interface = "Loop"
implementation = "SpinImpl"

[components.Hollow]
interface = "Empty"
implementation = "HollowImpl"

[components.Selfish]
interface = "Shape"
implementation = "Selfish"

[components.Orphan]
implementation = "OrphanImpl"
`
	m, err := Parse([]byte(src), TOML)
	if err != nil {
		t.Fatal(err)
	}

	components, err := m.DryRun()
	for _, want := range []error{
		component.ErrSelfExtension,
		component.ErrEmptyInterface,
		component.ErrSelfImplementation,
		component.ErrInvalidInterface,
	} {
		if !errors.Is(err, want) {
			t.Errorf("DryRun error %v does not include %v", err, want)
		}
	}

	var names []string
	for _, c := range components {
		names = append(names, c.Name())
	}
	if !slices.Equal(names, []string{"Circle", "Square"}) {
		t.Fatalf("assembled %v, want [Circle Square]", names)
	}

	square := components[1]
	if !slices.Equal(square.ClassOperations(), []string{"new", "unit"}) {
		t.Errorf("class operations = %v", square.ClassOperations())
	}
	obj, err := square.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Call("area"); !errors.Is(err, ErrDeclarationOnly) {
		t.Errorf("area error = %v, want ErrDeclarationOnly", err)
	}
	if _, err := square.CallClass("unit"); !errors.Is(err, ErrDeclarationOnly) {
		t.Errorf("unit error = %v, want ErrDeclarationOnly", err)
	}
	if components[0].Contracts().Invariant {
		t.Error("Circle kept its invariant guard")
	}
}

func TestDescribe(t *testing.T) {
	m, err := Parse([]byte(queueManifest), TOML)
	if err != nil {
		t.Fatal(err)
	}

	descs, err := m.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(descs))
	}
	d := descs[0]
	if d.Name != "BoundedQueue" || !d.Satisfies("Sized") || !d.Supports("pop") {
		t.Errorf("descriptor = %+v", d)
	}
	if !slices.Equal(d.Invariants, []string{"size never exceeds max_size"}) {
		t.Errorf("invariants = %v", d.Invariants)
	}
	if d.Contracts.Pre || !d.Contracts.Invariant {
		t.Errorf("contracts = %+v", d.Contracts)
	}
}

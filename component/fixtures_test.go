package component

import "testing"

// queueInterface declares a queue whose size never exceeds its max_size.
func queueInterface() *Interface {
	return NewInterface("Queue", "push", "pop", "size").
		Invariant("size never exceeds max_size", func(self *Self) bool {
			return len(self.Get("items").([]any)) <= self.Get("max_size").(int)
		}).
		Require("push", "one item at a time", func(call *Call) bool {
			return len(call.Args) == 1
		}).
		Ensure("push", "size is at most max_size", func(call *Call) bool {
			return len(call.Self.Get("items").([]any)) <= call.Self.Get("max_size").(int)
		})
}

// queueImplementation pops the oldest item when pushing onto a full queue.
func queueImplementation(name string) *Implementation {
	return NewImplementation(name).
		Has(Attribute{Name: "items", DefaultFunc: func() any { return []any{} }}).
		Has(Attribute{Name: "max_size", Default: 3, InitArg: "max_size", Reader: "max_size"}).
		Method("push", func(self *Self, args ...any) (any, error) {
			items := self.Get("items").([]any)
			if len(items) >= self.Get("max_size").(int) {
				if _, err := self.Call("pop"); err != nil {
					return nil, err
				}
				items = self.Get("items").([]any)
			}
			return nil, self.Set("items", append(items, args[0]))
		}).
		Method("pop", func(self *Self, args ...any) (any, error) {
			items := self.Get("items").([]any)
			if len(items) == 0 {
				return nil, nil
			}
			return items[0], self.Set("items", items[1:])
		}).
		Method("size", func(self *Self, args ...any) (any, error) {
			return len(self.Get("items").([]any)), nil
		})
}

func counterImplementation() *Implementation {
	return NewImplementation("CounterImpl").
		Has(Attribute{Name: "count", Default: 0, InitArg: "start"}).
		Method("next", func(self *Self, args ...any) (any, error) {
			n := self.Get("count").(int)
			return n, self.Set("count", n+1)
		})
}

// newQueueAssembler registers the Queue interface and QueueImpl.
func newQueueAssembler(t *testing.T) *Assembler {
	t.Helper()
	a := NewAssembler()
	a.Interfaces().Register(queueInterface())
	a.Implementations().Register(queueImplementation("QueueImpl"))
	return a
}

func mustAssemble(t *testing.T, a *Assembler, def Definition) *Component {
	t.Helper()
	c, err := a.Assemble(def)
	if err != nil {
		t.Fatalf("Assemble(%s) failed: %v", def.Name, err)
	}
	return c
}

func mustNew(t *testing.T, c *Component, args ...any) *Object {
	t.Helper()
	obj, err := c.New(args...)
	if err != nil {
		t.Fatalf("%s.New failed: %v", c.Name(), err)
	}
	return obj
}

func mustCall(t *testing.T, obj *Object, op string, args ...any) any {
	t.Helper()
	result, err := obj.Call(op, args...)
	if err != nil {
		t.Fatalf("%s(%v) failed: %v", op, args, err)
	}
	return result
}

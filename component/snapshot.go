package component

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/copystructure"
)

// Snapshot is a deep, read-only copy of an instance's slots, taken before an
// operation runs so postconditions can compare old and new state.
//
// A slot holding another *Object is captured as a nested *Snapshot.
type Snapshot struct {
	component string
	layout    *SlotLayout
	slots     []any
}

// Snapshotter is implemented by slot values that copy themselves for a
// pre-call snapshot. Values with unexported state need it, or a copier
// installed with WithCopier, before a postcondition can see them.
type Snapshotter interface {
	Snapshot() (any, error)
}

// CopierFunc returns a deep copy of a slot value.
type CopierFunc func(v any) (any, error)

func takeSnapshot(o *Object) (*Snapshot, error) {
	return snapshotObject(o, make(map[*Object]*Snapshot))
}

func snapshotObject(o *Object, seen map[*Object]*Snapshot) (*Snapshot, error) {
	if s, ok := seen[o]; ok {
		return s, nil
	}
	s := &Snapshot{
		component: o.component.name,
		layout:    o.component.layout,
		slots:     make([]any, len(o.slots)),
	}
	seen[o] = s

	for i, v := range o.slots {
		switch v := v.(type) {
		case nil:
		case *Object:
			nested, err := snapshotObject(v, seen)
			if err != nil {
				return nil, err
			}
			s.slots[i] = nested
		default:
			c, err := copySlot(v, o.component.copiers)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s.%s: %w", s.component, s.layout.Name(i), err)
			}
			s.slots[i] = c
		}
	}
	return s, nil
}

// copySlot deep-copies one slot value. copystructure silently drops
// unexported fields, so values carrying any are refused unless they copy
// themselves or have a copier.
func copySlot(v any, copiers map[reflect.Type]CopierFunc) (any, error) {
	if s, ok := v.(Snapshotter); ok {
		return s.Snapshot()
	}
	if fn, ok := copiers[reflect.TypeOf(v)]; ok {
		return fn(v)
	}
	if t := hiddenState(reflect.ValueOf(v), make(map[uintptr]bool)); t != nil {
		return nil, fmt.Errorf("%w: %s has unexported fields", ErrSnapshot, t)
	}
	return copystructure.Copy(v)
}

// hiddenState returns the first struct type reachable from v with
// unexported fields, or nil. Types copystructure has its own copier for,
// such as time.Time, are fine.
func hiddenState(v reflect.Value, seen map[uintptr]bool) reflect.Type {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			return hiddenState(v.Elem(), seen)
		}
	case reflect.Pointer, reflect.Map:
		if v.IsNil() || seen[v.Pointer()] {
			return nil
		}
		seen[v.Pointer()] = true
		if v.Kind() == reflect.Pointer {
			return hiddenState(v.Elem(), seen)
		}
		iter := v.MapRange()
		for iter.Next() {
			if t := hiddenState(iter.Key(), seen); t != nil {
				return t
			}
			if t := hiddenState(iter.Value(), seen); t != nil {
				return t
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if t := hiddenState(v.Index(i), seen); t != nil {
				return t
			}
		}
	case reflect.Struct:
		t := v.Type()
		if _, ok := copystructure.Copiers[t]; ok {
			return nil
		}
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				return t
			}
			if h := hiddenState(v.Field(i), seen); h != nil {
				return h
			}
		}
	}
	return nil
}

// Get returns the captured value of an attribute, or nil if undeclared.
func (s *Snapshot) Get(attr string) any {
	return s.Slot(s.layout.Index(attr))
}

// Slot returns the captured value at an offset, or nil if out of range.
func (s *Snapshot) Slot(offset int) any {
	if offset < 0 || offset >= len(s.slots) {
		return nil
	}
	return s.slots[offset]
}

// Len returns the number of captured slots.
func (s *Snapshot) Len() int {
	return len(s.slots)
}

// Component returns the name of the component the instance belonged to.
func (s *Snapshot) Component() string {
	return s.component
}

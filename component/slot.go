package component

// SlotLayout maps attribute names to dense storage offsets in [0, N).
//
// A layout is computed once per component and shared by every instance;
// instances only carry the slot array.
type SlotLayout struct {
	names []string
	index map[string]int
}

// AllocateSlots assigns offsets to attributes in declaration order. A name
// declared twice keeps the offset of its first declaration and the later
// declaration replaces the earlier one, so the returned attributes line up
// one-to-one with the offsets.
func AllocateSlots(attrs []Attribute) (*SlotLayout, []Attribute) {
	l := &SlotLayout{
		names: make([]string, 0, len(attrs)),
		index: make(map[string]int, len(attrs)),
	}
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if i, ok := l.index[a.Name]; ok {
			out[i] = a
			continue
		}
		l.index[a.Name] = len(l.names)
		l.names = append(l.names, a.Name)
		out = append(out, a)
	}
	return l, out
}

// Index returns the offset for an attribute, or -1 if it is not declared.
func (l *SlotLayout) Index(name string) int {
	if i, ok := l.index[name]; ok {
		return i
	}
	return -1
}

// Name returns the attribute stored at an offset, or "" if out of range.
func (l *SlotLayout) Name(offset int) string {
	if offset < 0 || offset >= len(l.names) {
		return ""
	}
	return l.names[offset]
}

// Len returns the number of slots.
func (l *SlotLayout) Len() int {
	return len(l.names)
}

// Names returns attribute names in offset order.
func (l *SlotLayout) Names() []string {
	result := make([]string, len(l.names))
	copy(result, l.names)
	return result
}

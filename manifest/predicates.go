package manifest

import (
	"sync"

	"github.com/manwar/Mic/component"
)

// Predicates binds the descriptions written in a manifest to Go checks.
// Invariants and conditions live in separate namespaces. It's safe for
// concurrent use.
type Predicates struct {
	mu         sync.RWMutex
	invariants map[string]func(*component.Self) bool
	conditions map[string]func(*component.Call) bool
}

// NewPredicates creates an empty predicate table.
func NewPredicates() *Predicates {
	return &Predicates{
		invariants: make(map[string]func(*component.Self) bool),
		conditions: make(map[string]func(*component.Call) bool),
	}
}

// Invariant binds an invariant description.
func (p *Predicates) Invariant(description string, check func(*component.Self) bool) *Predicates {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invariants[description] = check
	return p
}

// Condition binds a precondition or postcondition description.
func (p *Predicates) Condition(description string, check func(*component.Call) bool) *Predicates {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conditions[description] = check
	return p
}

// A nil table binds every description to a check that always holds, which
// is enough to resolve and describe declarations without running them.
func (p *Predicates) invariant(description string) (func(*component.Self) bool, bool) {
	if p == nil {
		return func(*component.Self) bool { return true }, true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn, ok := p.invariants[description]
	return fn, ok
}

func (p *Predicates) condition(description string) (func(*component.Call) bool, bool) {
	if p == nil {
		return func(*component.Call) bool { return true }, true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn, ok := p.conditions[description]
	return fn, ok
}

package component

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Assembly-time errors
// ---------------------------------------------------------------------------

// Sentinel errors wrapped by AssemblyError. Match them with errors.Is.
var (
	ErrSelfExtension      = errors.New("interface cannot extend itself")
	ErrInvalidInterface   = errors.New("invalid interface")
	ErrEmptyInterface     = errors.New("cannot have an empty interface")
	ErrUnimplemented      = errors.New("interface operation is not implemented")
	ErrDuplicateInitArg   = errors.New("cannot have same init_arg for two attributes")
	ErrDelegateOverride   = errors.New("cannot override implemented method with a delegated method")
	ErrAccessorOverride   = errors.New("cannot override implemented method with an accessor")
	ErrNoImplementation   = errors.New("no implementation metadata")
	ErrSelfImplementation = errors.New("component cannot be its own implementation")
	ErrDuplicateComponent = errors.New("component already assembled")
	ErrOperationConflict  = errors.New("operation declared more than once")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrInvalidForward     = errors.New("invalid forward declaration")
)

// Dispatch errors returned while calling operations.
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrNilTarget        = errors.New("forwarding target is nil")
	ErrNotPeer          = errors.New("object belongs to a different component")
	ErrSnapshot         = errors.New("slot value cannot be copied for a snapshot")
)

// AssemblyError reports a fatal problem found while assembling a component.
// Subject names the operation, attribute or interface involved, if any.
type AssemblyError struct {
	Component string
	Subject   string
	Err       error
}

func (e *AssemblyError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("assemble %s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("assemble %s: %s: %v", e.Component, e.Subject, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

func assemblyErr(component, subject string, err error) error {
	return &AssemblyError{Component: component, Subject: subject, Err: err}
}

// ---------------------------------------------------------------------------
// Runtime contract violations
// ---------------------------------------------------------------------------

// ContractKind identifies which guard raised a ContractError.
type ContractKind int

const (
	KindPrecondition ContractKind = iota
	KindPostcondition
	KindInvariant
)

func (k ContractKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindPostcondition:
		return "postcondition"
	case KindInvariant:
		return "invariant"
	}
	return fmt.Sprintf("ContractKind(%d)", int(k))
}

// Sentinels matched by ContractError.Is.
var (
	ErrPrecondition  = errors.New("precondition failed")
	ErrPostcondition = errors.New("postcondition failed")
	ErrInvariant     = errors.New("invariant violated")
)

// ContractError is returned when a guard predicate fails. The in-flight call
// is aborted; side effects already performed by the body are kept.
type ContractError struct {
	Kind        ContractKind
	Component   string
	Operation   string
	Description string
}

func (e *ContractError) Error() string {
	switch e.Kind {
	case KindPrecondition:
		return fmt.Sprintf("%s.%s: precondition failed: %s", e.Component, e.Operation, e.Description)
	case KindPostcondition:
		return fmt.Sprintf("%s.%s: postcondition failed: %s", e.Component, e.Operation, e.Description)
	default:
		if e.Operation == "" {
			return fmt.Sprintf("%s: invariant violated: %s", e.Component, e.Description)
		}
		return fmt.Sprintf("%s.%s: invariant violated: %s", e.Component, e.Operation, e.Description)
	}
}

// Is lets errors.Is match a ContractError against ErrPrecondition,
// ErrPostcondition or ErrInvariant.
func (e *ContractError) Is(target error) bool {
	switch target {
	case ErrPrecondition:
		return e.Kind == KindPrecondition
	case ErrPostcondition:
		return e.Kind == KindPostcondition
	case ErrInvariant:
		return e.Kind == KindInvariant
	}
	return false
}

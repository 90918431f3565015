// Package component assembles runtime components from interface
// declarations and implementation modules.
//
// This package contains:
//   - Interface tables and the extends resolver
//   - Slot allocation for implementation attributes
//   - Forwarding of operations to values held in slots
//   - Precondition, postcondition and invariant guards
//   - The Assembler and the default constructor
//   - Objects, the internal Self handle and the semiprivate capability
package component

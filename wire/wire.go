// Package wire encodes component descriptors as canonical CBOR so that a
// descriptor's bytes, and therefore its hash, depend only on its content.
package wire

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/manwar/Mic/component"
)

// Version is written into every bundle.
const Version byte = 1

var (
	ErrHashMismatch = errors.New("descriptor hash mismatch")
	ErrVersion      = errors.New("unsupported bundle version")
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Entry is one descriptor together with the hash of its encoding.
type Entry struct {
	Hash       [32]byte             `cbor:"1,keyasint"`
	Descriptor component.Descriptor `cbor:"2,keyasint"`
}

// Bundle is a set of descriptors exported from one manifest.
type Bundle struct {
	Version byte    `cbor:"1,keyasint"`
	Project string  `cbor:"2,keyasint,omitempty"`
	Entries []Entry `cbor:"3,keyasint"`
}

// MarshalDescriptor serializes a Descriptor to CBOR bytes.
func MarshalDescriptor(d *component.Descriptor) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalDescriptor deserializes a Descriptor from CBOR bytes.
func UnmarshalDescriptor(data []byte) (*component.Descriptor, error) {
	var d component.Descriptor
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("wire: unmarshal descriptor: %w", err)
	}
	return &d, nil
}

// Hash returns the SHA-256 of a descriptor's canonical encoding.
func Hash(d *component.Descriptor) ([32]byte, error) {
	data, err := MarshalDescriptor(d)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// NewBundle hashes each descriptor into a bundle.
func NewBundle(project string, descs []*component.Descriptor) (*Bundle, error) {
	b := &Bundle{Version: Version, Project: project, Entries: make([]Entry, 0, len(descs))}
	for _, d := range descs {
		h, err := Hash(d)
		if err != nil {
			return nil, fmt.Errorf("wire: hash %s: %w", d.Name, err)
		}
		b.Entries = append(b.Entries, Entry{Hash: h, Descriptor: *d})
	}
	return b, nil
}

// Descriptors returns the bundle's descriptors in order.
func (b *Bundle) Descriptors() []*component.Descriptor {
	out := make([]*component.Descriptor, len(b.Entries))
	for i := range b.Entries {
		out[i] = &b.Entries[i].Descriptor
	}
	return out
}

// MarshalBundle serializes a Bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBundle deserializes a Bundle and verifies every entry's hash.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("wire: unmarshal bundle: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("wire: %w: %d", ErrVersion, b.Version)
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		h, err := Hash(&e.Descriptor)
		if err != nil {
			return nil, err
		}
		if h != e.Hash {
			return nil, fmt.Errorf("wire: %s: %w", e.Descriptor.Name, ErrHashMismatch)
		}
	}
	return &b, nil
}

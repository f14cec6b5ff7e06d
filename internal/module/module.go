// Package module defines the identity and descriptor of a loadable unit.
package module

import (
	"fmt"

	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/internal/version"
)

// Identity names a loadable unit. Two identities refer to the same module
// when their simple names match; the version only distinguishes conflicting
// loads of that module.
type Identity struct {
	Name    string
	Version version.Version
}

// String renders the identity as name@version.
func (id Identity) String() string {
	return fmt.Sprintf("%s@%s", id.Name, id.Version.String())
}

// SameModule reports whether two identities name the same module,
// irrespective of version.
func (id Identity) SameModule(other Identity) bool {
	return id.Name == other.Name
}

// Descriptor is one successful load: the identity, the payload it was loaded
// from, and the dispatch table built for it. Descriptors are immutable; the
// loader hands out the same descriptor for repeated loads of the same
// identity into the same context.
type Descriptor struct {
	identity Identity
	payload  []byte
	exports  *dispatch.Table
}

// NewDescriptor assembles a descriptor. The payload is copied so later
// mutation of the caller's slice cannot alter the descriptor.
func NewDescriptor(identity Identity, payload []byte, exports *dispatch.Table) *Descriptor {
	owned := make([]byte, len(payload))
	copy(owned, payload)
	return &Descriptor{identity: identity, payload: owned, exports: exports}
}

// Identity returns the descriptor's identity.
func (d *Descriptor) Identity() Identity {
	return d.identity
}

// Payload returns a copy of the bytes the module was loaded from.
func (d *Descriptor) Payload() []byte {
	out := make([]byte, len(d.payload))
	copy(out, d.payload)
	return out
}

// Exports returns the dispatch table for this load.
func (d *Descriptor) Exports() *dispatch.Table {
	return d.exports
}

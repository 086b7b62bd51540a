// Package refs provides ephemeral references to in-memory binary data.
//
// A Ref is the server side equivalent of a browser object URL: a short-lived
// handle that makes some bytes addressable (for example by an HTTP handler)
// until it's released. Every acquired Ref must be released, Scope makes that
// automatic.
package refs // import "go.yhsif.com/img2gray/refs"

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind groups references by what they point at.
type Kind string

// Kind values.
const (
	KindSource Kind = "source"
	KindOutput Kind = "output"
)

// Prefix is prepended to the ID in URI.
const Prefix = "blob:"

// Ref is an ephemeral reference to a byte slice.
type Ref struct {
	id          string
	kind        Kind
	contentType string
	data        []byte

	registry *Registry
	once     sync.Once

	mu       sync.RWMutex
	released bool
}

// ID returns the unique id of the reference.
func (r *Ref) ID() string {
	return r.id
}

// URI returns the id in blob:<id> form.
func (r *Ref) URI() string {
	return Prefix + r.id
}

// Kind returns the kind the reference was acquired with.
func (r *Ref) Kind() Kind {
	return r.kind
}

// ContentType returns the content type the reference was acquired with.
func (r *Ref) ContentType() string {
	return r.contentType
}

// Bytes returns the referenced data, or nil once released.
func (r *Ref) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.released {
		return nil
	}
	return r.data
}

// Released reports whether Release was called.
func (r *Ref) Released() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}

// Release revokes the reference.
//
// It's safe to call Release multiple times and on a nil *Ref.
func (r *Ref) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.mu.Lock()
		r.released = true
		r.data = nil
		r.mu.Unlock()
		r.registry.remove(r)
	})
}

// Registry tracks live references.
//
// The zero value is ready to use. A nil *Registry is also valid: references
// acquired from it work the same way but are not tracked.
type Registry struct {
	mu   sync.RWMutex
	refs map[string]*Ref
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		refs: make(map[string]*Ref),
	}
}

// Acquire creates a new live reference to data.
//
// The caller owns the returned Ref and must Release it.
func (reg *Registry) Acquire(kind Kind, contentType string, data []byte) (*Ref, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("refs.Acquire: unable to generate uuid: %w", err)
	}
	ref := &Ref{
		id:          id.String(),
		kind:        kind,
		contentType: contentType,
		data:        data,
		registry:    reg,
	}
	if reg != nil {
		reg.mu.Lock()
		if reg.refs == nil {
			reg.refs = make(map[string]*Ref)
		}
		reg.refs[ref.id] = ref
		reg.mu.Unlock()
	}
	return ref, nil
}

// Scope acquires a reference, calls f with it, and releases it when f
// returns, regardless of the outcome.
func (reg *Registry) Scope(kind Kind, contentType string, data []byte, f func(*Ref) error) error {
	ref, err := reg.Acquire(kind, contentType, data)
	if err != nil {
		return err
	}
	defer ref.Release()
	return f(ref)
}

// Lookup finds a live reference by its ID or URI.
func (reg *Registry) Lookup(id string) (*Ref, bool) {
	if reg == nil {
		return nil, false
	}
	if len(id) > len(Prefix) && id[:len(Prefix)] == Prefix {
		id = id[len(Prefix):]
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ref, ok := reg.refs[id]
	return ref, ok
}

// Live returns the number of live references of the given kind.
//
// An empty kind counts all live references.
func (reg *Registry) Live(kind Kind) int {
	if reg == nil {
		return 0
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if kind == "" {
		return len(reg.refs)
	}
	var n int
	for _, ref := range reg.refs {
		if ref.kind == kind {
			n++
		}
	}
	return n
}

// ReleaseAll releases every live reference.
func (reg *Registry) ReleaseAll() {
	if reg == nil {
		return
	}
	reg.mu.RLock()
	refs := make([]*Ref, 0, len(reg.refs))
	for _, ref := range reg.refs {
		refs = append(refs, ref)
	}
	reg.mu.RUnlock()
	for _, ref := range refs {
		ref.Release()
	}
}

func (reg *Registry) remove(ref *Ref) {
	if reg == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.refs, ref.id)
}

package schema

import (
	"sync"

	"github.com/arkemis/dbufdb/internal/dberrors"
)

// Registry (S) holds every committed MessageDecl/EnumDecl, sharing one
// name namespace. It never mutates after a Loader batch commits — only
// CommitBatch (called by internal/loader under a staged, all-or-nothing
// batch) ever writes. Grounded on the teacher's pkg/schema Registry,
// which wraps a backing Storage behind an RWMutex-guarded read path;
// here there is no backing store to read through (process-lifetime,
// no persistence per spec §1/§6), so Registry degenerates to the
// memory tier alone.
type Registry struct {
	mu    sync.RWMutex
	decls map[string]Decl
}

func New() *Registry {
	return &Registry{decls: make(map[string]Decl)}
}

// Resolve looks up a declaration by name.
func (r *Registry) Resolve(name string) (Decl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decls[name]
	return d, ok
}

// FieldIndex returns the index of fieldName within message msg, or
// (-1, NotFound).
func (r *Registry) FieldIndex(msg, fieldName string) (int, error) {
	d, ok := r.Resolve(msg)
	if !ok || !d.IsMessage() {
		return -1, dberrors.NewUnknownType(msg)
	}
	idx := d.Message.FieldIndex(fieldName)
	if idx < 0 {
		return -1, dberrors.NewUnknownField(msg, fieldName)
	}
	return idx, nil
}

// Deps returns the dependency set (by field name) of msg.fieldName.
func (r *Registry) Deps(msg, fieldName string) ([]string, error) {
	d, ok := r.Resolve(msg)
	if !ok || !d.IsMessage() {
		return nil, dberrors.NewUnknownType(msg)
	}
	if d.Message.FieldIndex(fieldName) < 0 {
		return nil, dberrors.NewUnknownField(msg, fieldName)
	}
	return d.Message.Deps(fieldName), nil
}

// All returns every committed declaration name, for diagnostics.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decls))
	for n := range r.decls {
		names = append(names, n)
	}
	return names
}

// CommitBatch installs a validated, conflict-free batch of
// declarations atomically. Called only by internal/loader after it
// has validated the whole batch — Registry itself never partially
// applies a batch.
func (r *Registry) CommitBatch(batch map[string]Decl) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, d := range batch {
		r.decls[name] = d
	}
}

// Snapshot returns a shallow copy of the current namespace, used by
// the loader to check conflicts/resolve references without holding
// the registry lock across a multi-declaration validation pass.
func (r *Registry) Snapshot() map[string]Decl {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Decl, len(r.decls))
	for k, v := range r.decls {
		out[k] = v
	}
	return out
}

package optype

import (
	"errors"
	"fmt"
)

// ErrDuplicateOperationType indicates a Register call with a type id
// that is already present.
var ErrDuplicateOperationType = errors.New("duplicate operation type")

// Registry is the append-only catalog of operation definitions.
//
// Registration happens at process start, before any workflow call.
// There is no unregister: removing a type at runtime would race with
// in-flight operations that still reference it.
//
// INVARIANTS:
//   - byHash and byName always reference the same set of definitions
//   - order preserves registration order and never reorders
type Registry struct {
	byHash map[TypeID]*Definition
	byName map[string]*Definition
	order  []*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byHash: make(map[TypeID]*Definition),
		byName: make(map[string]*Definition),
	}
}

// Register adds a definition. The definition is copied; later mutation
// of the caller's value cannot corrupt the catalog.
//
// Fails with ErrDuplicateOperationType when the type id (or name) is
// already registered.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("register operation type: empty name")
	}
	if len(def.Roles) == 0 {
		return fmt.Errorf("register operation type %q: no phase roles", def.Name)
	}
	if _, ok := r.byHash[def.TypeID]; ok {
		return fmt.Errorf("register operation type %q (%s): %w", def.Name, def.TypeID, ErrDuplicateOperationType)
	}
	if _, ok := r.byName[def.Name]; ok {
		return fmt.Errorf("register operation type %q: %w", def.Name, ErrDuplicateOperationType)
	}

	copied := def
	copied.Roles = make(map[Phase]Role, len(def.Roles))
	for p, role := range def.Roles {
		copied.Roles[p] = role
	}

	r.byHash[copied.TypeID] = &copied
	r.byName[copied.Name] = &copied
	r.order = append(r.order, &copied)
	return nil
}

// LookupByHash returns the definition for a type id, or false.
func (r *Registry) LookupByHash(id TypeID) (*Definition, bool) {
	def, ok := r.byHash[id]
	return def, ok
}

// LookupByName returns the definition for an operation name, or false.
func (r *Registry) LookupByName(name string) (*Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, len(r.order))
	copy(out, r.order)
	return out
}

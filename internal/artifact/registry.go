// Package artifact provides the named artifact store used to pass
// intermediate results between subtasks. Tool inputs reference stored
// artifacts with @name tokens, resolved by this package before invocation.
package artifact

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Record is a single named artifact stored in a Registry.
type Record struct {
	// Name is the unique name within the owning registry.
	Name string `json:"name"`
	// Type is an opaque type tag (file, data, config, process, ...).
	Type string `json:"type"`
	// Value is the stored payload.
	Value any `json:"value"`
	// Description explains what the artifact is.
	Description string `json:"description,omitempty"`
	// Purpose explains why the artifact was produced.
	Purpose string `json:"purpose,omitempty"`
	// Timestamp is when the artifact was stored.
	Timestamp time.Time `json:"timestamp"`
	// Metadata records how the artifact was produced.
	Metadata Metadata `json:"metadata"`
}

// Metadata describes the provenance of an artifact.
type Metadata struct {
	// Tool is the name of the tool that produced the artifact.
	Tool string `json:"tool,omitempty"`
	// Success records whether the producing call succeeded.
	Success bool `json:"success"`
	// Consumed lists names of artifacts used to produce this one.
	Consumed []string `json:"consumed,omitempty"`
}

// NotFoundError indicates a reference to an artifact name that does not
// exist in the registry. Resolution aborts on the first unknown name.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.Name)
}

// DuplicateError indicates an attempt to store an artifact under a name
// that is already taken. Names are never overwritten silently.
type DuplicateError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("artifact already exists: %s", e.Name)
}

// Registry is a named, typed artifact store. All mutation goes through
// Store and Merge; reads return defensively cloned records so a consumer
// cannot mutate stored state.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry creates an empty artifact registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Store adds a record under the given name. The record's Name and
// Timestamp fields are filled in. Storing over an existing name fails
// with a DuplicateError.
func (r *Registry) Store(name string, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[name]; exists {
		return &DuplicateError{Name: name}
	}

	rec.Name = name
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Value = cloneValue(rec.Value)
	r.records[name] = rec
	return nil
}

// Get returns a clone of the record stored under name, or a NotFoundError.
func (r *Registry) Get(name string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return Record{}, &NotFoundError{Name: name}
	}
	rec.Value = cloneValue(rec.Value)
	return rec, nil
}

// Has returns true if an artifact with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[name]
	return ok
}

// Len returns the number of stored artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// List returns clones of all records, sorted by name for stable output.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		rec.Value = cloneValue(rec.Value)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted names of all stored artifacts.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns a new registry seeded with a snapshot of the current
// records. Writes to the child are not visible to this registry; the
// parallel strategy merges child scopes back only after its join.
func (r *Registry) Child() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	child := NewRegistry()
	for name, rec := range r.records {
		rec.Value = cloneValue(rec.Value)
		child.records[name] = rec
	}
	return child
}

// Merge copies records from other that this registry does not already
// hold. A record present in both with the same name is skipped when the
// stored record is identical in origin (same timestamp), and reported as
// a DuplicateError otherwise: concurrent writers must not race on one name.
func (r *Registry) Merge(other *Registry) error {
	other.mu.RLock()
	incoming := make(map[string]Record, len(other.records))
	for name, rec := range other.records {
		incoming[name] = rec
	}
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, rec := range incoming {
		existing, exists := r.records[name]
		if exists {
			if existing.Timestamp.Equal(rec.Timestamp) {
				// Same record inherited through a child snapshot.
				continue
			}
			return &DuplicateError{Name: name}
		}
		rec.Value = cloneValue(rec.Value)
		r.records[name] = rec
	}
	return nil
}

// Promote copies the named records from child into this registry.
// Unknown names are returned so the caller can log them; they do not
// fail the promotion of the remaining names.
func (r *Registry) Promote(child *Registry, names []string) (missing []string) {
	for _, name := range names {
		rec, err := child.Get(name)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		if err := r.Store(name, rec); err != nil {
			// Already promoted or produced locally under the same name.
			missing = append(missing, name)
		}
	}
	return missing
}

// cloneValue deep-copies the container types that flow through tool
// inputs and outputs (maps, slices). Scalars are returned as-is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

package vectordb

import (
	"sort"
	"sync"
)

// Registry maps index names to indices, creating them on first reference.
// It is safe for concurrent use; concurrent first references to the same name
// resolve to a single Index.
type Registry struct {
	// indices stores all indices by name
	indices *sync.Map
	opts    []Option
}

// NewRegistry creates an empty registry. opts apply to every index it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		indices: new(sync.Map),
		opts:    opts,
	}
}

// Get returns the index named name, creating an Uninitialized one on first reference.
// Names are case sensitive. Get accepts any string, the empty name included:
// callers own name validation (the CLI config requires a non-empty index.name).
func (r *Registry) Get(name string) *Index {
	if v, ok := r.indices.Load(name); ok {
		return v.(*Index)
	}
	v, _ := r.indices.LoadOrStore(name, NewIndex(name, r.opts...))
	return v.(*Index)
}

// Has reports whether name has been referenced.
func (r *Registry) Has(name string) bool {
	_, ok := r.indices.Load(name)
	return ok
}

// Names returns the referenced names in lexical order.
func (r *Registry) Names() []string {
	var names []string
	r.indices.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Remove forgets name. The index itself is left as is; callers drop it first when needed.
func (r *Registry) Remove(name string) bool {
	_, ok := r.indices.LoadAndDelete(name)
	return ok
}

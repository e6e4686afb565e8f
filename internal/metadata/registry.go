package metadata

import "sync"

// Registry is the in-memory view of saved forms. It is replaced wholesale
// whenever the persisted list changes.
type Registry struct {
	mu    sync.RWMutex
	order []string
	forms map[string]*FormSchema
}

func NewRegistry() *Registry {
	return &Registry{
		forms: make(map[string]*FormSchema),
	}
}

// GetForm returns the saved form with the given id, or nil.
func (r *Registry) GetForm(id string) *FormSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok {
		return nil
	}
	clone := f.Clone()
	return &clone
}

// AllForms returns all saved forms in the order they were loaded.
func (r *Registry) AllForms() []FormSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	forms := make([]FormSchema, 0, len(r.order))
	for _, id := range r.order {
		forms = append(forms, r.forms[id].Clone())
	}
	return forms
}

// Len returns the number of saved forms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Load replaces all forms in the registry.
// Called during startup and after every save or delete.
func (r *Registry) Load(forms []FormSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.forms = make(map[string]*FormSchema, len(forms))
	r.order = make([]string, 0, len(forms))
	for _, f := range forms {
		clone := f.Clone()
		if _, dup := r.forms[clone.ID]; !dup {
			r.order = append(r.order, clone.ID)
		}
		r.forms[clone.ID] = &clone
	}
}

package editor

import (
	"time"

	"github.com/google/uuid"

	"formcraft/internal/metadata"
)

// State is everything the form builder edits: the form being authored and
// the saved forms.
type State struct {
	CurrentForm metadata.FormSchema   `json:"currentForm"`
	SavedForms  []metadata.FormSchema `json:"savedForms"`
}

// Env supplies ids and the clock to reducers.
type Env struct {
	NewID func() string
	Now   func() time.Time
}

func DefaultEnv() Env {
	return Env{NewID: uuid.NewString, Now: time.Now}
}

// NewState starts with an empty current form and the given saved forms.
func NewState(saved []metadata.FormSchema, env Env) State {
	s := State{
		CurrentForm: metadata.NewFormSchema(env.NewID(), env.Now()),
		SavedForms:  make([]metadata.FormSchema, 0, len(saved)),
	}
	for _, f := range saved {
		s.SavedForms = append(s.SavedForms, f.Clone())
	}
	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		CurrentForm: s.CurrentForm.Clone(),
		SavedForms:  make([]metadata.FormSchema, len(s.SavedForms)),
	}
	for i, f := range s.SavedForms {
		out.SavedForms[i] = f.Clone()
	}
	return out
}

// SavedForm returns a copy of the saved form with the given id.
func (s State) SavedForm(id string) (metadata.FormSchema, bool) {
	for _, f := range s.SavedForms {
		if f.ID == id {
			return f.Clone(), true
		}
	}
	return metadata.FormSchema{}, false
}

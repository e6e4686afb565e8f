package editor

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"formcraft/internal/instrument"
	"formcraft/internal/metadata"
)

// FormStore persists the saved-form list.
type FormStore interface {
	LoadForms(ctx context.Context) ([]metadata.FormSchema, error)
	SaveForms(ctx context.Context, forms []metadata.FormSchema) error
}

// Session owns the builder state. Commands are applied one at a time;
// whenever the saved list changes it is written through to the store and
// the registry is reloaded.
type Session struct {
	mu       sync.Mutex
	state    State
	env      Env
	store    FormStore
	registry *metadata.Registry
}

// NewSession loads saved forms from store into registry and starts with an
// empty current form. A failed load is logged and leaves the list empty.
func NewSession(ctx context.Context, store FormStore, registry *metadata.Registry, env Env) *Session {
	if err := metadata.LoadAll(ctx, store, registry); err != nil {
		log.Warn().Err(err).Msg("could not load saved forms, starting empty")
		registry.Load(nil)
	}
	return &Session{
		state:    NewState(registry.AllForms(), env),
		env:      env,
		store:    store,
		registry: registry,
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies cmd and returns the resulting state. A rejected command
// leaves the state untouched. Persistence failures are logged and do not
// fail the command.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (State, error) {
	inst := instrument.GetInstrumenter(ctx)
	ctx, span := inst.StartSpan(ctx, "editor", "session", "dispatch."+cmd.Kind())
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, cmd, s.env)
	if err != nil {
		span.SetStatus("rejected")
		span.SetMetadata("error", err.Error())
		log.Debug().Err(err).Str("command", cmd.Kind()).Msg("editor command rejected")
		return s.state.Clone(), err
	}

	if savedChanged(s.state, next) {
		if err := s.store.SaveForms(ctx, next.SavedForms); err != nil {
			log.Error().Err(err).Str("command", cmd.Kind()).Msg("failed to persist saved forms")
			span.SetMetadata("persist_error", err.Error())
		}
		s.registry.Load(next.SavedForms)
		inst.Emit(ctx, "forms."+cmd.Kind(), "", map[string]any{"saved_forms": len(next.SavedForms)})
	}

	s.state = next
	span.SetForm(next.CurrentForm.ID)
	span.SetStatus("ok")
	return next.Clone(), nil
}

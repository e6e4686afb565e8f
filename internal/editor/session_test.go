package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"formcraft/internal/metadata"
)

type memoryForms struct {
	mu      sync.Mutex
	forms   []metadata.FormSchema
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryForms) LoadForms(context.Context) ([]metadata.FormSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return []metadata.FormSchema{}, m.loadErr
	}
	return append([]metadata.FormSchema(nil), m.forms...), nil
}

func (m *memoryForms) SaveForms(_ context.Context, forms []metadata.FormSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.forms = append([]metadata.FormSchema(nil), forms...)
	return nil
}

func TestSession_PersistsSavedForms(t *testing.T) {
	ctx := context.Background()
	store := &memoryForms{}
	reg := metadata.NewRegistry()
	sess := NewSession(ctx, store, reg, testEnv())

	for _, c := range []Command{
		SetName{Name: "Contact"},
		AddField{Field: metadata.FormField{ID: "email", Type: metadata.FieldText}},
	} {
		if _, err := sess.Dispatch(ctx, c); err != nil {
			t.Fatalf("%s: %v", c.Kind(), err)
		}
	}
	if store.saves != 0 {
		t.Fatalf("expected no writes before save, got %d", store.saves)
	}

	state, err := sess.Dispatch(ctx, SaveCurrent{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.saves != 1 || len(store.forms) != 1 {
		t.Fatalf("expected one persisted form, got saves=%d forms=%d", store.saves, len(store.forms))
	}
	if diff := cmp.Diff(state.SavedForms, store.forms); diff != "" {
		t.Fatalf("persisted forms mismatch (-state +store):\n%s", diff)
	}
	if reg.GetForm(state.SavedForms[0].ID) == nil {
		t.Fatal("expected registry to be reloaded")
	}

	// a fresh session sees what the first one saved
	again := NewSession(ctx, store, metadata.NewRegistry(), testEnv())
	if diff := cmp.Diff(state.SavedForms, again.State().SavedForms); diff != "" {
		t.Fatalf("reloaded forms mismatch (-want +got):\n%s", diff)
	}

	if _, err := sess.Dispatch(ctx, DeleteForm{ID: state.SavedForms[0].ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.forms) != 0 || reg.Len() != 0 {
		t.Fatalf("expected delete to persist, got %d stored, %d registered", len(store.forms), reg.Len())
	}
}

func TestSession_RejectedCommandKeepsState(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(ctx, &memoryForms{}, metadata.NewRegistry(), testEnv())
	before := sess.State()

	if _, err := sess.Dispatch(ctx, DeleteField{ID: "ghost"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if diff := cmp.Diff(before, sess.State()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestSession_PersistenceFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := &memoryForms{loadErr: errors.New("unreadable"), saveErr: errors.New("disk full")}
	sess := NewSession(ctx, store, metadata.NewRegistry(), testEnv())
	if len(sess.State().SavedForms) != 0 {
		t.Fatal("expected empty saved list after failed load")
	}

	sess.Dispatch(ctx, SetName{Name: "X"})
	sess.Dispatch(ctx, AddField{Field: metadata.FormField{ID: "a", Type: metadata.FieldText}})
	state, err := sess.Dispatch(ctx, SaveCurrent{})
	if err != nil {
		t.Fatalf("expected save to succeed despite store failure, got %v", err)
	}
	if len(state.SavedForms) != 1 || store.saves != 1 {
		t.Fatalf("expected one saved form and one write attempt, got %d, %d", len(state.SavedForms), store.saves)
	}
}

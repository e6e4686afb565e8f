package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"formcraft/internal/config"
	"formcraft/internal/metadata"
	"formcraft/internal/storage"
)

// FormRepository persists the saved-form list as one JSON array under a
// single blob key.
type FormRepository struct {
	blobs storage.BlobStore
	key   string
}

func NewFormRepository(blobs storage.BlobStore, key string) *FormRepository {
	if key == "" {
		key = config.DefaultStorageKey
	}
	return &FormRepository{blobs: blobs, key: key}
}

func (r *FormRepository) Key() string { return r.key }

// LoadForms returns the saved forms. Absent or malformed data yields an
// empty list and no error; only a failing backend returns an error, and
// then the list is empty too.
func (r *FormRepository) LoadForms(ctx context.Context) ([]metadata.FormSchema, error) {
	raw, err := r.blobs.Get(ctx, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []metadata.FormSchema{}, nil
	}
	if err != nil {
		return []metadata.FormSchema{}, fmt.Errorf("load forms: %w", err)
	}

	var forms []metadata.FormSchema
	if err := json.Unmarshal(raw, &forms); err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("stored forms are malformed, treating as empty")
		return []metadata.FormSchema{}, nil
	}
	if forms == nil {
		forms = []metadata.FormSchema{}
	}
	return forms, nil
}

// SaveForms replaces the stored list.
func (r *FormRepository) SaveForms(ctx context.Context, forms []metadata.FormSchema) error {
	if forms == nil {
		forms = []metadata.FormSchema{}
	}
	raw, err := json.Marshal(forms)
	if err != nil {
		return fmt.Errorf("encode forms: %w", err)
	}
	if err := r.blobs.Put(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save forms: %w", err)
	}
	return nil
}

// ClearForms removes the stored list.
func (r *FormRepository) ClearForms(ctx context.Context) error {
	if err := r.blobs.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("clear forms: %w", err)
	}
	return nil
}

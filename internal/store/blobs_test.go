package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"formcraft/internal/storage"
)

func newMockBlobStore(t *testing.T) (*SQLBlobStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLBlobStore(NewWithDB(db, &PostgresDialect{})), mock
}

func TestSQLBlobStore_Get(t *testing.T) {
	b, mock := newMockBlobStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM _blobs WHERE key = $1")).
		WithArgs("forms").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	got, err := b.Get(context.Background(), "forms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLBlobStore_GetMissing(t *testing.T) {
	b, mock := newMockBlobStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM _blobs WHERE key = $1")).
		WithArgs("forms").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	if _, err := b.Get(context.Background(), "forms"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLBlobStore_Put(t *testing.T) {
	b, mock := newMockBlobStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO _blobs (key, value, updated_at) VALUES ($1, $2, NOW())")).
		WithArgs("forms", `[{"id":"f1"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := b.Put(context.Background(), "forms", []byte(`[{"id":"f1"}]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLBlobStore_PutMapsErrors(t *testing.T) {
	b, mock := newMockBlobStore(t)
	mock.ExpectExec("INSERT INTO _blobs").
		WillReturnError(errors.New("ERROR: duplicate key value (SQLSTATE 23505)"))

	err := b.Put(context.Background(), "forms", []byte(`[]`))
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
}

func TestSQLBlobStore_Delete(t *testing.T) {
	b, mock := newMockBlobStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM _blobs WHERE key = $1")).
		WithArgs("forms").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := b.Delete(context.Background(), "forms"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

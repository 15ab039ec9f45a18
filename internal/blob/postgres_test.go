package blob

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestPostgresBackend_Read(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectQuery("SELECT data, generation FROM blobs WHERE name = \\$1").
		WithArgs("registrations").
		WillReturnRows(sqlmock.NewRows([]string{"data", "generation"}).AddRow([]byte("blob\n"), int64(7)))

	data, gen, err := b.Read(context.Background(), "registrations")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "blob\n" {
		t.Errorf("data = %q", data)
	}
	if gen != "7" {
		t.Errorf("generation = %q, want %q", gen, "7")
	}
}

func TestPostgresBackend_ReadMissing(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectQuery("SELECT data, generation FROM blobs WHERE name = \\$1").
		WithArgs("registrations").
		WillReturnError(sql.ErrNoRows)

	_, _, err := b.Read(context.Background(), "registrations")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) = %v, want ErrNotFound", err)
	}
}

func TestPostgresBackend_ReadFailureIsTransient(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectQuery("SELECT data, generation FROM blobs WHERE name = \\$1").
		WithArgs("registrations").
		WillReturnError(errors.New("connection reset"))

	_, _, err := b.Read(context.Background(), "registrations")
	if !IsTransient(err) {
		t.Errorf("Read(db down) = %v, want transient", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("db failure must never look like NotFound")
	}
}

func TestPostgresBackend_Write(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectExec("INSERT INTO blobs").
		WithArgs("evaluations", []byte("blob\n")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := b.Write(context.Background(), "evaluations", []byte("blob\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestPostgresBackend_WriteIf_Create(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectExec("INSERT INTO blobs").
		WithArgs("evaluations", []byte("blob\n")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := b.WriteIf(context.Background(), "evaluations", []byte("blob\n"), ""); err != nil {
		t.Fatalf("WriteIf(create): %v", err)
	}
}

func TestPostgresBackend_WriteIf_CreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	// ON CONFLICT DO NOTHING reports zero rows when the row already exists.
	mock.ExpectExec("INSERT INTO blobs").
		WithArgs("evaluations", []byte("blob\n")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := b.WriteIf(context.Background(), "evaluations", []byte("blob\n"), "")
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("WriteIf(create, exists) = %v, want ErrPreconditionFailed", err)
	}
}

func TestPostgresBackend_WriteIf_Match(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectExec("UPDATE blobs SET data = \\$2, generation = generation \\+ 1").
		WithArgs("evaluations", []byte("blob\n"), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := b.WriteIf(context.Background(), "evaluations", []byte("blob\n"), "7"); err != nil {
		t.Fatalf("WriteIf(match): %v", err)
	}
}

func TestPostgresBackend_WriteIf_Stale(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewPostgresBackendFromDB(db)

	mock.ExpectExec("UPDATE blobs SET data = \\$2, generation = generation \\+ 1").
		WithArgs("evaluations", []byte("blob\n"), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := b.WriteIf(context.Background(), "evaluations", []byte("blob\n"), "7")
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("WriteIf(stale) = %v, want ErrPreconditionFailed", err)
	}
}

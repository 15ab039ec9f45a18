// Package blob defines the backend adapter contract for collection storage
// and provides S3, PostgreSQL, and local-filesystem implementations.
//
// A backend stores whole collection blobs at named locations. It never
// mutates a blob in place; every write replaces the blob atomically. The one
// distinction every implementation must get right is NotFound versus
// transient failure: "this location has never been written" is a legitimate
// empty state, while "the read failed for some other reason" must surface as
// an error. Conflating the two is the bug class that destroyed data in the
// predecessor system.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound means the location has never been written. Callers may treat
// it as an empty collection. It is never retried.
var ErrNotFound = errors.New("blob not found")

// ErrTransient marks a retryable backend failure: network errors, auth or
// quota problems, timeouts. Callers must NOT treat it as an empty state.
var ErrTransient = errors.New("transient backend error")

// ErrPreconditionFailed means a conditional write observed a generation other
// than the one the caller read. The caller should re-read and retry the whole
// cycle.
var ErrPreconditionFailed = errors.New("blob generation precondition failed")

// Backend is the capability interface shared by all storage implementations.
//
// generation is an opaque per-blob version token (S3 ETag, Postgres counter,
// FS content hash). Read returns the token alongside the data; WriteIf only
// succeeds while the stored blob still carries that token. The empty token
// means "the blob must not exist yet".
type Backend interface {
	// Read returns the blob at name, or ErrNotFound, or a transient error.
	Read(ctx context.Context, name string) (data []byte, generation string, err error)

	// Write unconditionally replaces the blob at name.
	Write(ctx context.Context, name string, data []byte) error

	// WriteIf replaces the blob at name only if its generation still matches.
	// Fails with ErrPreconditionFailed on a concurrent modification.
	WriteIf(ctx context.Context, name string, data []byte, generation string) error
}

// markTransient wraps err so it matches ErrTransient while keeping the cause
// visible to errors.Is/As.
func markTransient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

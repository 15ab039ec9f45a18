// Package collection implements the durable read-modify-append-write
// protocol for one logical record collection.
//
// All state lives in the backend; a Collection holds only configuration.
// The one rule everything else hangs off: a failed load is NEVER treated as
// an empty collection. Appending on top of an assumed-empty base is how the
// predecessor system overwrote its whole dataset with a single record.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/evalvault/internal/blob"
	"github.com/alfredjeanlab/evalvault/internal/codec"
	"github.com/alfredjeanlab/evalvault/internal/model"
)

var (
	// ErrLoadFailed means the current collection state could not be read.
	// Callers must not substitute an empty collection.
	ErrLoadFailed = errors.New("collection load failed")

	// ErrAppendFailed means the append did not commit; the backend still
	// holds the pre-append collection unchanged. Safe to retry.
	ErrAppendFailed = errors.New("collection append failed")

	// ErrDuplicateKey means a record with the same uniqueness key already
	// exists in the collection.
	ErrDuplicateKey = errors.New("duplicate collection key")

	// ErrRecordNotFound means Update could not locate the requested record.
	ErrRecordNotFound = errors.New("record not found in collection")
)

// KeyFunc extracts a uniqueness key from a record. Records whose key is
// non-empty must be unique within the collection (used for the one
// registration-per-identity invariant).
type KeyFunc func(model.Record) string

// writeCycles bounds how many times Append restarts the whole
// load-append-write cycle after losing a generation race.
const writeCycles = 3

// backupTimeFormat names backup blobs, e.g. evaluations_backup_20250601T120000Z.
const backupTimeFormat = "20060102T150405Z"

// Collection owns the read-modify-append-write cycle for one backing blob.
// No other component may write that location.
type Collection struct {
	name    string
	backend blob.Backend
	retry   blob.RetryPolicy
	key     KeyFunc
	backups bool
	logger  *slog.Logger
}

// Options configures a Collection.
type Options struct {
	// Key enables per-collection uniqueness when set.
	Key KeyFunc
	// Retry overrides blob.DefaultRetryPolicy when non-zero.
	Retry blob.RetryPolicy
	// DisableBackups turns off the pre-overwrite backup blob.
	DisableBackups bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New returns a Collection for the named location on the given backend.
func New(name string, backend blob.Backend, opts Options) *Collection {
	retry := opts.Retry
	if retry.Attempts == 0 {
		retry = blob.DefaultRetryPolicy
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{
		name:    name,
		backend: backend,
		retry:   retry,
		key:     opts.Key,
		backups: !opts.DisableBackups,
		logger:  logger,
	}
}

// Name returns the collection's logical location name.
func (c *Collection) Name() string {
	return c.name
}

// load reads and decodes the current collection state, returning the records
// and the backend generation token. ErrNotFound is the only path to an empty
// result; every other failure is ErrLoadFailed.
func (c *Collection) load(ctx context.Context) ([]model.Record, string, error) {
	var (
		data []byte
		gen  string
	)
	err := c.retry.Do(ctx, func() error {
		var readErr error
		data, gen, readErr = c.backend.Read(ctx, c.name)
		return readErr
	})
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrLoadFailed, c.name, err)
	}

	records, err := codec.Decode(data)
	if err != nil {
		// Corruption aborts the whole load; skipping bad records would
		// mask data loss.
		return nil, "", fmt.Errorf("%w: %s: %w", ErrLoadFailed, c.name, err)
	}
	return records, gen, nil
}

// ReadAll returns every record in the collection in append order. A location
// that has never been written yields an empty slice.
func (c *Collection) ReadAll(ctx context.Context) ([]model.Record, error) {
	records, _, err := c.load(ctx)
	return records, err
}

// Append adds one record to the collection.
//
// The full cycle is: load, idempotency check, uniqueness check, backup,
// conditional write. If the conditional write loses a race with a concurrent
// writer the whole cycle restarts, so a successful return always means the
// committed collection contains the record exactly once on top of a state
// that included every previously committed record.
func (c *Collection) Append(ctx context.Context, rec model.Record) error {
	if rec.RecordID() == "" {
		return fmt.Errorf("%w: %s: record has no id", ErrAppendFailed, c.name)
	}

	var lastErr error
	for cycle := 0; cycle < writeCycles; cycle++ {
		records, gen, err := c.load(ctx)
		if err != nil {
			// Never fall through to a write: the write would be built on an
			// assumed-empty base and could clobber existing records.
			return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, err)
		}

		// Idempotency: a retried append whose confirmation was lost must
		// succeed without writing again.
		for _, existing := range records {
			if existing.RecordID() == rec.RecordID() {
				return nil
			}
		}

		if c.key != nil {
			if k := c.key(rec); k != "" {
				for _, existing := range records {
					if c.key(existing) == k {
						return fmt.Errorf("%w: %s: key %q", ErrDuplicateKey, c.name, k)
					}
				}
			}
		}

		if c.backups && len(records) > 0 {
			c.writeBackup(ctx, records)
		}

		data, err := codec.Encode(append(records, rec))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, err)
		}

		err = c.retry.Do(ctx, func() error {
			return c.backend.WriteIf(ctx, c.name, data, gen)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, blob.ErrPreconditionFailed) {
			c.logger.Info("append lost generation race, retrying cycle",
				"collection", c.name, "cycle", cycle+1)
			lastErr = err
			continue
		}
		return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, lastErr)
}

// Update locates one record by uniqueness key (or record ID when the
// collection has no key function), applies mutate to it, and rewrites the
// collection under the same load-then-conditional-write discipline as
// Append. ErrRecordNotFound is returned when no record matches.
func (c *Collection) Update(ctx context.Context, key string, mutate func(model.Record)) error {
	var lastErr error
	for cycle := 0; cycle < writeCycles; cycle++ {
		records, gen, err := c.load(ctx)
		if err != nil {
			return err
		}

		idx := -1
		for i, rec := range records {
			if c.recordKey(rec) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s: key %q", ErrRecordNotFound, c.name, key)
		}

		mutate(records[idx])

		if c.backups {
			c.writeBackup(ctx, records)
		}

		data, err := codec.Encode(records)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, err)
		}

		err = c.retry.Do(ctx, func() error {
			return c.backend.WriteIf(ctx, c.name, data, gen)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, blob.ErrPreconditionFailed) {
			lastErr = err
			continue
		}
		return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrAppendFailed, c.name, lastErr)
}

func (c *Collection) recordKey(rec model.Record) string {
	if c.key != nil {
		if k := c.key(rec); k != "" {
			return k
		}
	}
	return rec.RecordID()
}

// writeBackup snapshots the pre-write state to a timestamped location.
// Best-effort: failure is logged, never fatal.
func (c *Collection) writeBackup(ctx context.Context, records []model.Record) {
	data, err := codec.Encode(records)
	if err != nil {
		c.logger.Warn("backup encode failed", "collection", c.name, "err", err)
		return
	}
	name := fmt.Sprintf("%s_backup_%s", c.name, time.Now().UTC().Format(backupTimeFormat))
	if err := c.backend.Write(ctx, name, data); err != nil {
		c.logger.Warn("backup write failed", "collection", c.name, "backup", name, "err", err)
	}
}

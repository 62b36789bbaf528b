package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/db"
)

// ErrLeaseLost is returned when a queue item is settled with a token that no longer holds its lease.
var ErrLeaseLost = errors.New("queue lease lost")

// Store implements the durable pipeline ports on one sqlite database.
type Store struct {
	database pipelineDatabase
	clock    clock.Clock
	closeFn  func() error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for visibility and lease times.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// Open opens the database at path, applies migrations and owns the handle.
func Open(path string, opts ...Option) (*Store, error) {
	database, err := db.New(path)
	if err != nil {
		return nil, err
	}
	store := NewStore(database, opts...)
	store.closeFn = database.Close
	return store, nil
}

// NewStore wraps an existing shared database handle. Close does not close it.
func NewStore(database *db.Database, opts ...Option) *Store {
	return newStore(database, opts...)
}

func newStore(database pipelineDatabase, opts ...Option) *Store {
	s := &Store{database: database, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.database.Ping(ctx)
}

// Close releases the database handle when the store owns it.
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *Store) nowMs() int64 {
	return s.clock.Now().UnixMilli()
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func fromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var (
	_ ports.Queue              = (*Store)(nil)
	_ ports.WatchStore         = (*Store)(nil)
	_ ports.CursorStore        = (*Store)(nil)
	_ ports.RequestStatusStore = (*Store)(nil)
	_ ports.RegistrationStore  = (*Store)(nil)
	_ ports.DeliveryLog        = (*Store)(nil)
	_ ports.ContentStore       = (*Store)(nil)
)

package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/nowcasting-api/internal/metrics"
)

// Querier is the read surface the repository needs. *pgxpool.Conn,
// *pgxpool.Pool and pgx.Tx all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Session is a database handle scoped to one request. Release must be
// called exactly once when the request is done with it.
type Session interface {
	Querier
	Release()
}

// SessionFactory hands out sessions. *Database is the production
// implementation.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
}

// Acquire checks a connection out of the pool for the caller.
//
// The returned Session is a *pgxpool.Conn; releasing it returns the
// connection to the pool.
func (db *Database) Acquire(ctx context.Context) (Session, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database session: %w", err)
	}

	metrics.SessionsInUse.Inc()
	return &trackedSession{Session: conn}, nil
}

// trackedSession keeps the in-use gauge honest and makes Release
// idempotent, so a double release cannot hand the same connection back twice.
type trackedSession struct {
	Session
	released bool
}

func (s *trackedSession) Release() {
	if s.released {
		return
	}
	s.released = true
	metrics.SessionsInUse.Dec()
	s.Session.Release()
}

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
)

// InstanceLock is a session advisory lock pinned to its own connection.
type InstanceLock struct {
	conn   *pgxpool.Conn
	lockID int64
}

// TryAcquireInstanceLock takes lockID without waiting. It returns
// ErrInstanceLocked when another session holds it.
func (db *DB) TryAcquireInstanceLock(ctx context.Context, lockID int64) (*InstanceLock, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()
		return nil, fmt.Errorf("advisory lock %d: %w", lockID, coreerrors.ErrInstanceLocked)
	}

	return &InstanceLock{conn: conn, lockID: lockID}, nil
}

// Release unlocks and returns the connection to the pool.
func (l *InstanceLock) Release(ctx context.Context) error {
	defer l.conn.Release()

	if _, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}

	return nil
}

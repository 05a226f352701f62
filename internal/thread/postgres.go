package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/parley/internal/log"
)

// PostgresStore is a Store implementation backed by PostgreSQL.
//
// Messages are stored one row each with a per-thread sequence number.
// Append runs in a transaction that locks the thread row with
// SELECT ... FOR UPDATE, so concurrent appends to the same thread
// serialize and sequence numbers never collide. Appends to distinct
// threads only contend on their own rows.
//
// PostgresStore is safe for concurrent use by multiple goroutines.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresStore creates a Store over the given connection pool.
// The schema is managed by the embedded migrations in the db package.
func NewPostgresStore(pool *pgxpool.Pool, logger log.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// History returns the thread's messages ordered by sequence number.
// Unknown thread IDs yield an empty history.
func (s *PostgresStore) History(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM thread_messages WHERE thread_id = $1 ORDER BY sequence_number`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("querying messages for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("unmarshaling message payload: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	s.logger.Debug("loaded history", "thread_id", threadID, "count", len(msgs))
	return msgs, nil
}

// Append atomically appends msgs to the thread, creating the thread row
// on first write. All inserts happen in one transaction; on any failure
// nothing is persisted.
func (s *PostgresStore) Append(ctx context.Context, threadID string, msgs []Message) error {
	if len(msgs) == 0 {
		return ErrEmptyAppend
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	// Create the thread row if needed, then lock it. The lock serializes
	// concurrent appends so sequence numbers stay gapless and ordered.
	if _, err := tx.Exec(ctx,
		`INSERT INTO threads (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		threadID); err != nil {
		return fmt.Errorf("ensuring thread row: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`SELECT id FROM threads WHERE id = $1 FOR UPDATE`,
		threadID); err != nil {
		return fmt.Errorf("locking thread row: %w", err)
	}

	var maxSeq int32
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM thread_messages WHERE thread_id = $1`,
		threadID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("reading max sequence number: %w", err)
	}

	for i, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshaling message %d: %w", i, err)
		}
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- i is a loop index bounded by slice length
		if _, err := tx.Exec(ctx,
			`INSERT INTO thread_messages (thread_id, sequence_number, role, payload)
			 VALUES ($1, $2, $3, $4)`,
			threadID, seq, string(msg.Role), payload); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE threads SET updated_at = now(), message_count = $2 WHERE id = $1`,
		threadID, maxSeq+int32(len(msgs))); err != nil {
		return fmt.Errorf("updating thread metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended messages", "thread_id", threadID, "count", len(msgs))
	return nil
}

// Ping reports whether the backing database is reachable.
// Used by the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

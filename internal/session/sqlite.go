package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/tool"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Interface guard.
var _ Store = (*SQLiteStore)(nil)

const defaultBusyTimeout = 5000

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists sessions in a SQLite database via modernc.org/sqlite
// (pure Go, no CGO), using WAL mode for concurrent reads.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the session database at path, creating
// parent directories as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit the pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Save writes the full session state in one transaction, replacing any
// prior version so the stored form always round-trips the in-memory one.
func (s *SQLiteStore) Save(ctx context.Context, state *State) error {
	grantsJSON, err := json.Marshal(state.Grants)
	if err != nil {
		return fmt.Errorf("session: marshal grants: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, title, grants, input_tokens, output_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.ID, state.Title, string(grantsJSON),
		state.Usage.InputTokens, state.Usage.OutputTokens,
		state.CreatedAt.UTC().Format(timeLayout),
		state.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("session: save session row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", state.ID); err != nil {
		return fmt.Errorf("session: clear messages: %w", err)
	}

	for seq, msg := range state.Messages {
		blocksJSON, err := json.Marshal(msg.Blocks)
		if err != nil {
			return fmt.Errorf("session: marshal blocks: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, seq, role, blocks)
			VALUES (?, ?, ?, ?)`,
			state.ID, seq+1, string(msg.Role), string(blocksJSON),
		)
		if err != nil {
			return fmt.Errorf("session: save message %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// Load returns the session with the given id, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*State, error) {
	var (
		state      State
		grantsJSON string
		createdAt  string
		updatedAt  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, grants, input_tokens, output_tokens, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&state.ID, &state.Title, &grantsJSON,
		&state.Usage.InputTokens, &state.Usage.OutputTokens,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}

	if err := json.Unmarshal([]byte(grantsJSON), &state.Grants); err != nil {
		return nil, fmt.Errorf("session: unmarshal grants: %w", err)
	}
	if state.Grants == nil {
		state.Grants = make(map[string]tool.Grant)
	}
	if state.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("session: parse created_at: %w", err)
	}
	if state.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("session: parse updated_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, blocks FROM messages
		WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("session: load messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			role       string
			blocksJSON string
		)
		if err := rows.Scan(&role, &blocksJSON); err != nil {
			return nil, fmt.Errorf("session: scan message: %w", err)
		}
		msg := message.Message{Role: message.Role(role)}
		if err := json.Unmarshal([]byte(blocksJSON), &msg.Blocks); err != nil {
			return nil, fmt.Errorf("session: unmarshal blocks: %w", err)
		}
		state.Messages = append(state.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: load message rows: %w", err)
	}

	return &state, nil
}

// List returns summaries of all sessions, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var (
			sum       Summary
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &createdAt, &updatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("session: scan summary: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("session: parse created_at: %w", err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("session: parse updated_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: list rows: %w", err)
	}
	return summaries, nil
}

// Delete removes a session and its messages. Unknown ids are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("session: delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("session: delete session: %w", err)
	}
	return tx.Commit()
}

// PruneBefore deletes sessions last updated before the cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("session: begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoffStr := cutoff.UTC().Format(timeLayout)

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages WHERE session_id IN
		(SELECT id FROM sessions WHERE updated_at < ?)`, cutoffStr); err != nil {
		return 0, fmt.Errorf("session: prune messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoffStr)
	if err != nil {
		return 0, fmt.Errorf("session: prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: prune rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

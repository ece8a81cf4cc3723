package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/buynest/live-assist/internal/domain"
	"github.com/buynest/live-assist/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS carts (
		user_id TEXT PRIMARY KEY,
		data_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assist_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		accepted INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assist_pending ON assist_requests(accepted) WHERE accepted = 0;

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		user_email TEXT NOT NULL,
		content TEXT NOT NULL,
		sender TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, created_at, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetCart retrieves the persisted cart snapshot for a user.
func (s *SQLiteStore) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	query := `SELECT data_json FROM carts WHERE user_id = ?`
	row := s.db.QueryRowContext(ctx, query, userID)

	var dataJSON string
	err := row.Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return domain.NewCartSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan cart row: %w", err)
	}

	var cart domain.CartSnapshot
	if err := json.Unmarshal([]byte(dataJSON), &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if cart == nil {
		cart = domain.NewCartSnapshot()
	}
	return cart.Normalize(), nil
}

// PutCart stores the full cart snapshot for a user.
func (s *SQLiteStore) PutCart(ctx context.Context, userID string, cart domain.CartSnapshot) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}

	query := `
	INSERT INTO carts (user_id, data_json, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		data_json = excluded.data_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, userID, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

// ListPendingAssists retrieves all assist requests not yet accepted.
func (s *SQLiteStore) ListPendingAssists(ctx context.Context) ([]*domain.AssistRequest, error) {
	query := `
		SELECT id, user_id, name, email, accepted, created_at, updated_at
		FROM assist_requests WHERE accepted = 0`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pending assists: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close pending assists rows", "error", closeErr)
		}
	}()

	var reqs []*domain.AssistRequest
	for rows.Next() {
		req, err := scanAssist(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending assists: %w", err)
	}

	return reqs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssist(row rowScanner) (*domain.AssistRequest, error) {
	var req domain.AssistRequest
	var accepted int
	var createdAt, updatedAt int64

	if err := row.Scan(
		&req.ID, &req.UserID, &req.Name, &req.Email,
		&accepted, &createdAt, &updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan assist row: %w", err)
	}

	req.Accepted = accepted != 0
	req.CreatedAt = time.Unix(createdAt, 0)
	req.UpdatedAt = time.Unix(updatedAt, 0)
	return &req, nil
}

// GetAssist retrieves an assist request by ID.
func (s *SQLiteStore) GetAssist(ctx context.Context, id string) (*domain.AssistRequest, error) {
	query := `
		SELECT id, user_id, name, email, accepted, created_at, updated_at
		FROM assist_requests WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	req, err := scanAssist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// CreateAssist stores a new assist request.
func (s *SQLiteStore) CreateAssist(ctx context.Context, req *domain.AssistRequest) error {
	query := `
	INSERT INTO assist_requests (id, user_id, name, email, accepted, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	accepted := 0
	if req.Accepted {
		accepted = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		req.ID, req.UserID, req.Name, req.Email,
		accepted, req.CreatedAt.Unix(), req.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert assist request: %w", err)
	}
	return nil
}

// MarkAssistAccepted flips the accepted flag to true.
func (s *SQLiteStore) MarkAssistAccepted(ctx context.Context, id string) (int64, error) {
	query := `UPDATE assist_requests SET accepted = 1, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), id)
	if err != nil {
		return 0, fmt.Errorf("mark assist accepted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// DeleteAssist removes an assist request.
func (s *SQLiteStore) DeleteAssist(ctx context.Context, id string) (int64, error) {
	query := `DELETE FROM assist_requests WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete assist request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// AppendMessage stores a new chat message.
// Retries with exponential backoff on SQLITE_BUSY since message appends
// can race with poll reads from the helper dashboard.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.appendMessageOnce(ctx, msg)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("AppendMessage failed with SQLITE_BUSY, retrying",
				"user_id", msg.UserID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("append message for %s: %w", msg.UserID, err)
	}

	return nil
}

func (s *SQLiteStore) appendMessageOnce(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
	INSERT INTO messages (id, user_id, user_email, content, sender, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.UserID, msg.UserEmail, msg.Content,
		string(msg.From), msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves all messages for a user, oldest first.
// The seq column breaks created_at ties by insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID string) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, user_id, user_email, content, sender, created_at
		FROM messages WHERE user_id = ?
		ORDER BY created_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close messages rows", "error", closeErr)
		}
	}()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var sender string
		var createdAt int64

		if err := rows.Scan(
			&msg.ID, &msg.UserID, &msg.UserEmail, &msg.Content,
			&sender, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.From = domain.Sender(sender)
		msg.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

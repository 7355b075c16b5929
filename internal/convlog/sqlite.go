package convlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/adinavai/adinav/internal/secrecy"
)

// SQLiteStore is the default on-disk conversation log. Message fields are
// encrypted before they reach the database file.
type SQLiteStore struct {
	db     *sql.DB
	cipher *secrecy.Cipher
}

func NewSQLiteStore(ctx context.Context, path string, cipher *secrecy.Cipher) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA synchronous=NORMAL`,
		`PRAGMA foreign_keys=ON`,
		`PRAGMA busy_timeout=5000`,
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, cipher: cipher}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			session_id TEXT,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_member_created ON conversations (member_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_log_member ON activity_log (member_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) LogTurn(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	userMsg, err := s.cipher.Encrypt(turn.UserMessage)
	if err != nil {
		return fmt.Errorf("encrypt user message: %w", err)
	}
	aiResp, err := s.cipher.Encrypt(turn.AssistantResponse)
	if err != nil {
		return fmt.Errorf("encrypt ai response: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, member_id, session_id, user_message, ai_response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.MemberID, turn.SessionID, userMsg, aiResp,
		turn.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MemberTurns(ctx context.Context, memberID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, session_id, user_message, ai_response, created_at
		 FROM conversations WHERE member_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query member turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0, limit)
	for rows.Next() {
		var t Turn
		var sessionID sql.NullString
		var userMsg, aiResp, createdAt string
		if err := rows.Scan(&t.ID, &t.MemberID, &sessionID, &userMsg, &aiResp, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.SessionID = sessionID.String
		t.UserMessage = s.decrypt(userMsg)
		t.AssistantResponse = s.decrypt(aiResp)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	// Reverse into chronological order for display.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *SQLiteStore) LogActivity(ctx context.Context, activity Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	details, err := s.cipher.Encrypt(activity.Details)
	if err != nil {
		return fmt.Errorf("encrypt activity details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, member_id, activity_type, details, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		activity.ID, activity.MemberID, activity.Kind, details,
		activity.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Activities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, activity_type, details, created_at
		 FROM activity_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		var details sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.MemberID, &a.Kind, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		if details.Valid {
			a.Details = s.decrypt(details.String)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			a.CreatedAt = ts
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	return activities, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) decrypt(encoded string) string {
	plain, err := s.cipher.Decrypt(encoded)
	if err != nil {
		return decryptErrorText
	}
	return plain
}

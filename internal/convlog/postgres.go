package convlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adinavai/adinav/internal/secrecy"
)

// PostgresStore persists the conversation log in PostgreSQL for
// deployments where the family record and chat history should not live on
// the app host's disk.
type PostgresStore struct {
	pool   *pgxpool.Pool
	cipher *secrecy.Cipher
}

func NewPostgresStore(ctx context.Context, databaseURL string, cipher *secrecy.Cipher) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, cipher: cipher}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			session_id TEXT,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			details TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_member_created ON conversations (member_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_log_member ON activity_log (member_id);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) LogTurn(ctx context.Context, turn Turn) error {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (id, member_id, session_id, user_message, ai_response, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.MemberID, turn.SessionID, userMsg, aiResp, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) MemberTurns(ctx context.Context, memberID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, member_id, session_id, user_message, ai_response, created_at
		 FROM conversations WHERE member_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query member turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0, limit)
	for rows.Next() {
		var t Turn
		var sessionID *string
		var userMsg, aiResp string
		if err := rows.Scan(&t.ID, &t.MemberID, &sessionID, &userMsg, &aiResp, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		if sessionID != nil {
			t.SessionID = *sessionID
		}
		t.UserMessage = s.decrypt(userMsg)
		t.AssistantResponse = s.decrypt(aiResp)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) LogActivity(ctx context.Context, activity Activity) error {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO activity_log (id, member_id, activity_type, details, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		activity.ID, activity.MemberID, activity.Kind, details, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Activities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, member_id, activity_type, details, created_at
		 FROM activity_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		var details *string
		if err := rows.Scan(&a.ID, &a.MemberID, &a.Kind, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		if details != nil {
			a.Details = s.decrypt(*details)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	return activities, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) decrypt(encoded string) string {
	plain, err := s.cipher.Decrypt(encoded)
	if err != nil {
		return decryptErrorText
	}
	return plain
}

// Package convlog is the global append-only conversation log. Every chat
// turn lands here in addition to the member's embedded history, with the
// message fields encrypted at rest.
package convlog

import (
	"context"
	"time"
)

// Turn is one logged exchange.
type Turn struct {
	ID                string    `json:"id"`
	MemberID          string    `json:"member_id"`
	SessionID         string    `json:"session_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"ai_response"`
	CreatedAt         time.Time `json:"created_at"`
}

// Activity is one audit event (logins, chat messages, errors).
type Activity struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	Kind      string    `json:"kind"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// decryptErrorText is what an unreadable row decodes to; retrieval never
// fails a whole transcript because one row is bad.
const decryptErrorText = "[DECRYPTION_ERROR]"

// Store persists the conversation and activity logs.
type Store interface {
	LogTurn(ctx context.Context, turn Turn) error
	// MemberTurns returns up to limit most recent turns for a member,
	// oldest first, with message fields decrypted.
	MemberTurns(ctx context.Context, memberID string, limit int) ([]Turn, error)
	LogActivity(ctx context.Context, activity Activity) error
	// Activities returns up to limit most recent audit entries, newest
	// first, with detail text decrypted.
	Activities(ctx context.Context, limit int) ([]Activity, error)
	Close() error
}

package family

import "errors"

// ErrNotFound reports an unknown member id.
var ErrNotFound = errors.New("family member not found")

// ErrStoreUnavailable wraps failures to read or write the persisted record.
var ErrStoreUnavailable = errors.New("family store unavailable")

// ConversationTurn is one (user message, assistant response) exchange.
// Immutable once appended.
type ConversationTurn struct {
	Timestamp         string `json:"timestamp"`
	MemberID          string `json:"member"`
	UserMessage       string `json:"message"`
	AssistantResponse string `json:"ai_response"`
	Day               string `json:"day"`
}

// TraitObservation is one dated personality note. Traits are kept as a
// size-capped list instead of the unbounded free-text blob the service
// originally accumulated.
type TraitObservation struct {
	Date string `json:"date"`
	Note string `json:"note"`
}

// Member is one family member's persistent profile.
type Member struct {
	ID                  string             `json:"-"`
	DisplayName         string             `json:"name"`
	Role                string             `json:"role"`
	Interests           []string           `json:"interests"`
	Traits              []TraitObservation `json:"traits"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
}

// Info holds the family-wide fields of the record.
type Info struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Record is the whole persisted family document.
type Record struct {
	Family  Info    `json:"family"`
	Members *Roster `json:"members"`
}

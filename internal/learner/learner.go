// Package learner grows a member's profile from what they say. The
// built-in strategy is a fixed-vocabulary keyword scan; it hides behind
// the Extractor interface so a smarter implementation can replace it
// without touching the chat orchestration.
package learner

import (
	"strings"
	"time"

	"github.com/adinavai/adinav/internal/family"
)

// Extractor finds interests mentioned in a message.
type Extractor interface {
	Extract(message string) []string
}

// defaultVocabulary is the fixed interest keyword list. Matches are
// reported in this order, not in order of appearance in the message.
var defaultVocabulary = []string{
	"football", "cricket", "reading", "games", "music", "art", "science", "math",
}

// KeywordExtractor matches a fixed keyword vocabulary, case-insensitively.
type KeywordExtractor struct {
	vocabulary []string
}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{vocabulary: defaultVocabulary}
}

func (e *KeywordExtractor) Extract(message string) []string {
	lowered := strings.ToLower(message)
	var found []string
	for _, kw := range e.vocabulary {
		if strings.Contains(lowered, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// traitMinChars gates trait observations on messages long enough to mean
// something.
const traitMinChars = 20

// Learner applies extracted interests and trait observations to the
// family store.
type Learner struct {
	store     *family.Store
	extractor Extractor
	now       func() time.Time
}

func New(store *family.Store, extractor Extractor) *Learner {
	return &Learner{store: store, extractor: extractor, now: time.Now}
}

// Learn updates the member's interests and traits from one user message.
// Re-learning the same message is a no-op for interests.
func (l *Learner) Learn(memberID, message string) error {
	for _, interest := range l.extractor.Extract(message) {
		if _, err := l.store.AddInterest(memberID, interest); err != nil {
			return err
		}
	}

	lowered := strings.ToLower(message)
	if len(message) > traitMinChars && (strings.Contains(lowered, "feel") || strings.Contains(lowered, "think")) {
		obs := family.TraitObservation{
			Date: l.now().UTC().Format("2006-01-02"),
			Note: "observed from conversation",
		}
		if err := l.store.AddTrait(memberID, obs); err != nil {
			return err
		}
	}
	return nil
}

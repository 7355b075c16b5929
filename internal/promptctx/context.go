// Package promptctx renders the family and member context blocks and
// assembles the system prompt sent to the completion service.
package promptctx

import (
	"fmt"
	"strings"

	"github.com/adinavai/adinav/internal/family"
)

// recentTurns bounds how much history is replayed into the prompt.
const recentTurns = 5

// turnPreviewChars truncates each replayed user message.
const turnPreviewChars = 100

// FamilyContext renders the family-wide block: name, values, and member
// display names in roster insertion order. Deterministic for identical
// records because it feeds the cache key prefix.
func FamilyContext(record family.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Family: %s\n", record.Family.Name)
	fmt.Fprintf(&b, "Family Values: %s\n", strings.Join(record.Family.Values, ", "))

	names := make([]string, 0, record.Members.Len())
	for _, id := range record.Members.IDs() {
		m, _ := record.Members.Get(id)
		names = append(names, m.DisplayName)
	}
	fmt.Fprintf(&b, "Members: %s\n", strings.Join(names, ", "))
	return b.String()
}

// MemberContext renders everything known about one member. An empty
// interest set renders as an empty string after the label; the recent
// conversations section is omitted entirely when there is no history.
func MemberContext(m family.Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Family Member: %s\n", m.DisplayName)
	fmt.Fprintf(&b, "Role: %s\n", m.Role)
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(m.Interests, ", "))
	fmt.Fprintf(&b, "Personality: %s\n", personality(m.Traits))

	history := m.ConversationHistory
	if len(history) == 0 {
		return b.String()
	}
	if len(history) > recentTurns {
		history = history[len(history)-recentTurns:]
	}
	b.WriteString("\nRecent conversations:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "- %s: %s...\n", day(turn.Timestamp), truncate(turn.UserMessage, turnPreviewChars))
	}
	return b.String()
}

func personality(traits []family.TraitObservation) string {
	if len(traits) == 0 {
		return "learning..."
	}
	notes := make([]string, 0, len(traits))
	for _, t := range traits {
		if t.Date != "" {
			notes = append(notes, t.Date+": "+t.Note)
			continue
		}
		notes = append(notes, t.Note)
	}
	return strings.Join(notes, " | ")
}

func day(timestamp string) string {
	if len(timestamp) > 10 {
		return timestamp[:10]
	}
	return timestamp
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

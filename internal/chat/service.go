// Package chat orchestrates one conversational turn: resolve the member,
// assemble the personalized prompt, consult the response cache, call the
// completion backend, then persist and learn from the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adinavai/adinav/internal/completion"
	"github.com/adinavai/adinav/internal/convlog"
	"github.com/adinavai/adinav/internal/family"
	"github.com/adinavai/adinav/internal/learner"
	"github.com/adinavai/adinav/internal/observability"
	"github.com/adinavai/adinav/internal/promptctx"
	"github.com/adinavai/adinav/internal/respcache"
)

// Reply is the outcome of one chat turn.
type Reply struct {
	Text      string
	Cached    bool
	Timestamp time.Time
}

// Service wires the chat pipeline together. All dependencies are required
// except metrics, which may be nil in tests.
type Service struct {
	family  *family.Store
	log     convlog.Store
	client  completion.Client
	cache   *respcache.Cache
	learner *learner.Learner
	metrics *observability.Metrics
	now     func() time.Time
}

func New(store *family.Store, logStore convlog.Store, client completion.Client, cache *respcache.Cache, lrn *learner.Learner, metrics *observability.Metrics) *Service {
	return &Service{
		family:  store,
		log:     logStore,
		client:  client,
		cache:   cache,
		learner: lrn,
		metrics: metrics,
		now:     time.Now,
	}
}

// ChatTurn runs one exchange for a member. Unknown members return
// family.ErrNotFound. Backend and storage failures do not bubble up as
// errors; the member gets a warm apology instead, and the failed turn is
// never written to history so it cannot poison future prompts.
func (s *Service) ChatTurn(ctx context.Context, memberID, sessionID, message string) (Reply, error) {
	turnStart := s.now()

	member, err := s.family.Member(memberID)
	if err != nil {
		if errors.Is(err, family.ErrNotFound) {
			return Reply{}, err
		}
		s.countTurn("store_error")
		return Reply{Text: storeApology("there"), Timestamp: s.now()}, nil
	}

	promptStart := s.now()
	prompt := s.systemPrompt(member)
	s.observeStage("prompt_build", s.now().Sub(promptStart))

	cacheStart := s.now()
	text, hit := s.cache.Get(prompt, message)
	s.observeStage("cache_lookup", s.now().Sub(cacheStart))

	if hit {
		s.countCache("hit")
	} else {
		s.countCache("miss")

		completionStart := s.now()
		text, err = s.client.Complete(ctx, prompt, message)
		elapsed := s.now().Sub(completionStart)
		s.observeStage("completion", elapsed)
		if s.metrics != nil {
			s.metrics.ObserveCompletionLatency(elapsed)
		}
		if err != nil {
			s.countCompletionError(err)
			s.countTurn("completion_error")
			s.logActivity(ctx, memberID, "chat_error", fmt.Sprintf("completion failed: %v", err))
			return Reply{Text: completionApology(member.DisplayName), Timestamp: s.now()}, nil
		}

		s.cache.Put(prompt, message, text)
		s.countCache("stored")
	}

	ts := s.now()
	persistStart := ts
	s.persistTurn(ctx, member, sessionID, message, text, ts)
	s.observeStage("persist", s.now().Sub(persistStart))

	s.countTurn(outcomeFor(hit))
	s.observeStage("turn_total", s.now().Sub(turnStart))

	return Reply{Text: text, Cached: hit, Timestamp: ts}, nil
}

// StartConversation asks the backend for a personalized opener. Greetings
// skip the response cache and are not written to history. If the backend
// is down the member still gets a friendly hello.
func (s *Service) StartConversation(ctx context.Context, memberID string) (Reply, error) {
	member, err := s.family.Member(memberID)
	if err != nil {
		return Reply{}, err
	}

	prompt := s.systemPrompt(member)
	text, err := s.client.Complete(ctx, prompt, promptctx.GreetingRequest(member.DisplayName))
	if err != nil {
		s.countCompletionError(err)
		text = fmt.Sprintf("Hello %s! It's wonderful to see you. How can I help you today?", member.DisplayName)
	}
	return Reply{Text: text, Timestamp: s.now()}, nil
}

// History returns the member's recent logged turns, oldest first.
func (s *Service) History(ctx context.Context, memberID string, limit int) ([]convlog.Turn, error) {
	if _, err := s.family.Member(memberID); err != nil {
		return nil, err
	}
	return s.log.MemberTurns(ctx, memberID, limit)
}

// RecordActivity writes one audit entry (logins, logouts). Chat turns
// record their own entries.
func (s *Service) RecordActivity(ctx context.Context, memberID, kind, details string) {
	s.logActivity(ctx, memberID, kind, details)
}

// Activities returns the most recent audit entries, newest first.
func (s *Service) Activities(ctx context.Context, limit int) ([]convlog.Activity, error) {
	return s.log.Activities(ctx, limit)
}

func (s *Service) systemPrompt(member family.Member) string {
	familyCtx := promptctx.FamilyContext(s.family.Snapshot())
	memberCtx := promptctx.MemberContext(member)
	return promptctx.SystemPrompt(member.DisplayName, memberCtx, familyCtx)
}

// persistTurn writes the exchange to the member's embedded history and to
// the global conversation log, then lets the learner update the profile.
// Failures here are logged and swallowed; the member already has their
// reply and losing it over a disk hiccup would be worse.
func (s *Service) persistTurn(ctx context.Context, member family.Member, sessionID, message, response string, ts time.Time) {
	turn := family.ConversationTurn{
		Timestamp:         ts.UTC().Format(time.RFC3339),
		MemberID:          member.ID,
		UserMessage:       message,
		AssistantResponse: response,
		Day:               ts.UTC().Weekday().String(),
	}
	if err := s.family.AppendTurn(member.ID, turn); err != nil {
		log.Printf("chat: append turn for %s: %v", member.ID, err)
		s.countTurn("persist_error")
	}

	if err := s.log.LogTurn(ctx, convlog.Turn{
		MemberID:          member.ID,
		SessionID:         sessionID,
		UserMessage:       message,
		AssistantResponse: response,
		CreatedAt:         ts.UTC(),
	}); err != nil {
		log.Printf("chat: log turn for %s: %v", member.ID, err)
		s.countTurn("persist_error")
	}

	s.logActivity(ctx, member.ID, "chat_message", fmt.Sprintf("message length %d", len(message)))

	if err := s.learner.Learn(member.ID, message); err != nil {
		log.Printf("chat: learn from %s: %v", member.ID, err)
	}
}

func (s *Service) logActivity(ctx context.Context, memberID, kind, details string) {
	err := s.log.LogActivity(ctx, convlog.Activity{MemberID: memberID, Kind: kind, Details: details})
	if err != nil {
		log.Printf("chat: log activity %s for %s: %v", kind, memberID, err)
	}
}

func outcomeFor(cached bool) string {
	if cached {
		return "ok_cached"
	}
	return "ok"
}

func (s *Service) countTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.ChatTurns.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countCache(event string) {
	if s.metrics != nil {
		s.metrics.CacheEvents.WithLabelValues(event).Inc()
	}
	if s.metrics != nil && (event == "hit" || event == "miss") {
		s.metrics.TurnStages.ObserveIndicator("cache_" + event)
	}
}

func (s *Service) countCompletionError(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.CompletionErrors.WithLabelValues(completionErrorKind(err)).Inc()
}

func (s *Service) observeStage(stage string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.TurnStages.Observe(stage, float64(d.Milliseconds()))
	}
}

func completionErrorKind(err error) string {
	var serverErr *completion.ServerError
	switch {
	case errors.As(err, &serverErr):
		return "server"
	case errors.Is(err, completion.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, completion.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

func completionApology(displayName string) string {
	return fmt.Sprintf("I'm sorry %s, I'm having some technical difficulties right now. Please try again in a moment.", displayName)
}

func storeApology(displayName string) string {
	return fmt.Sprintf("I'm sorry %s, I'm having trouble reaching our family memories right now. Please try again in a moment.", displayName)
}

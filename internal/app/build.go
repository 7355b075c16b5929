// Package app assembles the service from its parts.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/adinavai/adinav/internal/auth"
	"github.com/adinavai/adinav/internal/chat"
	"github.com/adinavai/adinav/internal/completion"
	"github.com/adinavai/adinav/internal/config"
	"github.com/adinavai/adinav/internal/convlog"
	"github.com/adinavai/adinav/internal/family"
	"github.com/adinavai/adinav/internal/httpapi"
	"github.com/adinavai/adinav/internal/learner"
	"github.com/adinavai/adinav/internal/observability"
	"github.com/adinavai/adinav/internal/respcache"
	"github.com/adinavai/adinav/internal/secrecy"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *auth.Manager
	Chat     *chat.Service
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	cipher, err := secrecy.Open(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("encryption key init failed: %w", err)
	}

	familyStore, err := family.Open(cfg.FamilyFile)
	if err != nil {
		return nil, fmt.Errorf("family store init failed: %w", err)
	}

	logStore, err := convlog.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath, cipher)
	if err != nil {
		return nil, fmt.Errorf("conversation log init failed: %w", err)
	}

	completer, err := completion.New(completion.Config{
		Mode:    cfg.CompletionMode,
		URL:     cfg.OllamaURL,
		Model:   cfg.OllamaModel,
		Timeout: cfg.CompletionTimeout,
	})
	if err != nil {
		_ = logStore.Close()
		return nil, fmt.Errorf("completion client init failed: %w", err)
	}

	cache := respcache.New(cfg.ResponseCacheTTL)
	lrn := learner.New(familyStore, learner.NewKeywordExtractor())
	chatSvc := chat.New(familyStore, logStore, completer, cache, lrn, metrics)

	sessions := auth.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *auth.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, auth.SeedCredentials(), sessions, chatSvc, familyStore, completer, metrics)

	cleanup := func() error {
		var errs []string
		if err := logStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Chat:     chatSvc,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

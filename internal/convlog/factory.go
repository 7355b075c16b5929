package convlog

import (
	"context"
	"strings"

	"github.com/adinavai/adinav/internal/secrecy"
)

// NewStore creates a postgres-backed log when DATABASE_URL is configured,
// a sqlite log when a path is set, and an in-memory log otherwise.
func NewStore(ctx context.Context, databaseURL, sqlitePath string, cipher *secrecy.Cipher) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL, cipher)
	}
	if strings.TrimSpace(sqlitePath) != "" {
		return NewSQLiteStore(ctx, sqlitePath, cipher)
	}
	return NewInMemoryStore(), nil
}

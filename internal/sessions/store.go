// Package sessions stores the mode each session has selected. The dispatcher
// sees only the Store interface; the backend is picked from config at startup.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/modebot/internal/config"
	"github.com/nextlevelbuilder/modebot/internal/modes"
)

// ErrUnknownBackend is returned by Open for an unrecognised sessions.backend.
var ErrUnknownBackend = errors.New("unknown session backend")

// Store reads and writes the current mode of a session.
// Implementations do not validate mode names; callers must.
type Store interface {
	// Mode returns the stored mode, or "" if the session never set one.
	Mode(ctx context.Context, sessionID string) (string, error)
	// SetMode overwrites the session's mode.
	SetMode(ctx context.Context, sessionID, mode string) error
	Close() error
}

// ModeOrDefault returns the session's mode, falling back to modes.DefaultMode
// when none is stored or the read fails. Read errors are logged, not returned.
func ModeOrDefault(ctx context.Context, s Store, sessionID string) string {
	mode, err := s.Mode(ctx, sessionID)
	if err != nil {
		slog.Warn("session mode read failed, using default",
			"session", sessionID, "default", modes.DefaultMode, "error", err)
		return modes.DefaultMode
	}
	if mode == "" {
		return modes.DefaultMode
	}
	return mode
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionsConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case config.BackendSQLite:
		s, err = OpenSQLite(ctx, cfg.SQLite.Path)
	case config.BackendPostgres:
		s, err = OpenPostgres(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s session store: %w", cfg.Backend, err)
	}
	return s, nil
}

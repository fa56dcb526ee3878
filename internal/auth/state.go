package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gardusio/coach-client/internal/store"
)

// State is where a session stands in the authorization lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePendingCallback State = "pending_callback"
	StateAuthorized      State = "authorized"
	StateExpired         State = "expired"
)

// State reports the session's lifecycle state. A session with tokens is
// Authorized until its access token expires; a session without tokens is
// PendingCallback while an attempt started by BeginAuth is still live.
func (s *Service) State(ctx context.Context, sid string) (State, error) {
	rec, err := s.tokens.GetTokens(ctx, sid)
	switch {
	case err == nil && rec.AccessToken != "":
		if rec.Expiry().After(s.now()) {
			return StateAuthorized, nil
		}
		return StateExpired, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}

	pending, err := s.tokens.HasPending(ctx, sid)
	if err != nil {
		return "", fmt.Errorf("failed to load pending auth: %w", err)
	}
	if pending {
		return StatePendingCallback, nil
	}
	return StateUnauthenticated, nil
}

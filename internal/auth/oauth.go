// Package auth runs the Fitbit OAuth 2.0 authorization-code flow with PKCE
// and keeps each session's tokens fresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Gardusio/coach-client/internal/config"
	"github.com/Gardusio/coach-client/internal/logging"
	"github.com/Gardusio/coach-client/internal/model"
	"github.com/Gardusio/coach-client/internal/session"
	"github.com/Gardusio/coach-client/internal/store"
)

// refreshSkew is how close to expiry a token may get before AccessToken
// refreshes it.
const refreshSkew = 60 * time.Second

const (
	defaultRefreshWait  = 10 * time.Second
	refreshPollInterval = 50 * time.Millisecond
)

// ExchangeResult is returned by a successful exchange or refresh.
type ExchangeResult struct {
	OK        bool   `json:"ok"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SessionInfo is the frontend's view of a session.
type SessionInfo struct {
	Active    bool     `json:"active"`
	UserID    string   `json:"userId,omitempty"`
	Scope     []string `json:"scope,omitempty"`
	ExpiresAt int64    `json:"expiresAt,omitempty"`
}

// Service handles the OAuth2 flow and token management for Fitbit sessions.
type Service struct {
	oauthConfig   *oauth2.Config
	defaultScopes string
	revokeURL     string
	confidential  bool

	tokens *store.TokenStore
	locker session.Locker
	logger logging.Logger

	// refreshes of one session in this process share a single token call
	flight      singleflight.Group
	refreshWait time.Duration

	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used for token, refresh and revoke calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithRefreshWait bounds how long AccessToken waits for a refresh that
// another process holds the lock for.
func WithRefreshWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshWait = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service. The client authenticates with
// clientSecret only when the app type is "server" and the secret is set;
// otherwise it is a public client and sends client_id in the body.
func NewService(cfg config.FitbitConfig, clientSecret string, tokens *store.TokenStore, locker session.Locker, logger logging.Logger, opts ...Option) *Service {
	confidential := cfg.Confidential() && clientSecret != ""

	oc := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if confidential {
		oc.ClientSecret = clientSecret
		oc.Endpoint.AuthStyle = oauth2.AuthStyleInHeader
	}

	s := &Service{
		oauthConfig:   oc,
		defaultScopes: cfg.Scopes,
		revokeURL:     cfg.RevokeURL,
		confidential:  confidential,
		tokens:        tokens,
		locker:        locker,
		logger:        logger,
		refreshWait:   defaultRefreshWait,
		httpClient:    http.DefaultClient,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// oauthContext makes x/oauth2 use the service's HTTP client.
func (s *Service) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// BeginAuth starts an authorization attempt for the session and returns the
// Fitbit authorize URL. Any earlier attempt of the same session is replaced,
// so its state and verifier stop working.
func (s *Service) BeginAuth(ctx context.Context, sid, scopes string) (string, error) {
	scope := strings.TrimSpace(scopes)
	if scope == "" {
		scope = s.defaultScopes
	}

	pkce := GeneratePKCE()
	state, err := newState()
	if err != nil {
		return "", err
	}

	pending := model.PendingAuth{
		State:     state,
		Verifier:  pkce.Verifier,
		CreatedAt: s.now(),
	}
	if err := s.tokens.PutPending(ctx, sid, pending); err != nil {
		return "", fmt.Errorf("failed to store pending auth: %w", err)
	}

	return s.oauthConfig.AuthCodeURL(state,
		oauth2.S256ChallengeOption(pkce.Verifier),
		oauth2.SetAuthURLParam("scope", scope),
	), nil
}

// HandleCallback completes the attempt started by BeginAuth. It returns
// nil, nil when code is empty. The pending attempt is consumed before any
// check, so a callback can never be replayed.
func (s *Service) HandleCallback(ctx context.Context, sid, code, state string) (*ExchangeResult, error) {
	if code == "" {
		return nil, nil
	}

	pending, err := s.tokens.TakePending(ctx, sid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load pending auth: %w", err)
	}

	if pending != nil && pending.State != "" && pending.State != state {
		return nil, ErrAuthStateMismatch
	}
	if pending == nil || pending.Verifier == "" {
		return nil, ErrMissingVerifier
	}

	return s.ExchangeCode(ctx, sid, code, pending.Verifier, s.oauthConfig.RedirectURL)
}

// ExchangeCode trades an authorization code for tokens and stores them
// under the session.
func (s *Service) ExchangeCode(ctx context.Context, sid, code, verifier, redirectURI string) (*ExchangeResult, error) {
	if code == "" || verifier == "" || redirectURI == "" {
		return nil, ErrMissingFields
	}

	tok, err := s.oauthConfig.Exchange(s.oauthContext(ctx), code,
		oauth2.VerifierOption(verifier),
		oauth2.SetAuthURLParam("redirect_uri", redirectURI),
		oauth2.SetAuthURLParam("client_id", s.oauthConfig.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rec := s.recordFrom(tok, nil)
	if err := s.save(ctx, sid, rec); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "fitbit session authorized", "session", sid, "user", rec.UserID)
	return &ExchangeResult{OK: true, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}, nil
}

// Refresh exchanges the stored refresh token for a new token pair. It is
// serialized per session; a concurrent call gets ErrRefreshInProgress.
func (s *Service) Refresh(ctx context.Context, sid string) (*ExchangeResult, error) {
	rec, err := s.refresh(ctx, sid)
	if err != nil {
		return nil, err
	}
	return &ExchangeResult{OK: true, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}, nil
}

// refresh joins an in-flight refresh of the same session when there is one.
// Callers get their own copy of the record.
func (s *Service) refresh(ctx context.Context, sid string) (*model.TokenRecord, error) {
	v, err, _ := s.flight.Do(sid, func() (any, error) {
		return s.refreshLocked(ctx, sid)
	})
	if err != nil {
		return nil, err
	}
	rec := *v.(*model.TokenRecord)
	return &rec, nil
}

func (s *Service) refreshLocked(ctx context.Context, sid string) (*model.TokenRecord, error) {
	owner := uuid.NewString()
	if _, err := s.locker.AcquireLock(ctx, sid, owner); err != nil {
		if errors.Is(err, session.ErrLocked) {
			return nil, ErrRefreshInProgress
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, sid, owner); err != nil {
			s.logger.Warn(ctx, "failed to release refresh lock", "session", sid, "error", err)
		}
	}()

	prev, err := s.tokens.GetTokens(ctx, sid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	if prev.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	src := s.oauthConfig.TokenSource(s.oauthContext(ctx), &oauth2.Token{
		RefreshToken: prev.RefreshToken,
		Expiry:       s.now().Add(-time.Hour), // force refresh
	})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	rec := s.recordFrom(tok, prev)
	if err := s.save(ctx, sid, rec); err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "fitbit token refreshed", "session", sid)
	return &rec, nil
}

// AccessToken returns a usable access token for the session. A token that
// expires within a minute is refreshed first; if that fails the stale token
// is returned and the upstream call decides.
func (s *Service) AccessToken(ctx context.Context, sid string) (string, error) {
	rec, err := s.tokens.GetTokens(ctx, sid)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotAuthorized
	}
	if err != nil {
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}
	if rec.AccessToken == "" {
		return "", ErrNotAuthorized
	}

	if rec.RefreshToken == "" || !rec.Expiry().Before(s.now().Add(refreshSkew)) {
		return rec.AccessToken, nil
	}

	fresh, err := s.refresh(ctx, sid)
	if errors.Is(err, ErrRefreshInProgress) {
		fresh, err = s.awaitRefresh(ctx, sid, rec.AccessToken)
	}
	if err == nil {
		return fresh.AccessToken, nil
	}

	s.logger.Warn(ctx, "silent refresh failed, using stored token", "session", sid, "error", err)

	// a concurrent refresh may have landed in the meantime
	if latest, rerr := s.tokens.GetTokens(ctx, sid); rerr == nil && latest.AccessToken != "" {
		return latest.AccessToken, nil
	}
	return rec.AccessToken, nil
}

// awaitRefresh polls the store until the lock holder has saved a token other
// than stale, or refreshWait has passed.
func (s *Service) awaitRefresh(ctx context.Context, sid, stale string) (*model.TokenRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshWait)
	defer cancel()

	ticker := time.NewTicker(refreshPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for concurrent refresh: %w", ErrRefreshInProgress)
		case <-ticker.C:
		}

		latest, err := s.tokens.GetTokens(ctx, sid)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load tokens: %w", err)
		}
		if latest != nil && latest.AccessToken != "" && latest.AccessToken != stale {
			return latest, nil
		}
	}
}

// Revoke disconnects the session. The refresh token is revoked at Fitbit
// when one is stored; a remote failure is logged and ignored. Local records
// are always removed, so calling Revoke twice is harmless.
func (s *Service) Revoke(ctx context.Context, sid string) error {
	rec, err := s.tokens.GetTokens(ctx, sid)
	switch {
	case err == nil && rec.RefreshToken != "":
		if err := s.revokeRemote(ctx, rec.RefreshToken); err != nil {
			s.logger.Warn(ctx, "fitbit revoke failed", "session", sid, "error", err)
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.logger.Warn(ctx, "failed to load tokens for revoke", "session", sid, "error", err)
	}

	if err := s.tokens.Clear(ctx, sid); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info(ctx, "fitbit session revoked", "session", sid)
	return nil
}

// Session reports whether the session is connected and to whom.
func (s *Service) Session(ctx context.Context, sid string) (*SessionInfo, error) {
	info := &SessionInfo{}

	rec, err := s.tokens.GetTokens(ctx, sid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	if rec != nil {
		info.Active = rec.AccessToken != ""
		info.UserID = rec.UserID
		info.Scope = rec.Scope
		info.ExpiresAt = rec.ExpiresAt
	}

	meta, err := s.tokens.GetMeta(ctx, sid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load session meta: %w", err)
	}
	if meta != nil {
		if meta.UserID != "" {
			info.UserID = meta.UserID
		}
		if len(meta.Scope) > 0 {
			info.Scope = meta.Scope
		}
		if meta.ExpiresAt != 0 {
			info.ExpiresAt = meta.ExpiresAt
		}
	}
	return info, nil
}

// recordFrom converts a token response into a record. Fields the response
// omits (refresh token, user id, scope) are carried over from prev.
func (s *Service) recordFrom(tok *oauth2.Token, prev *model.TokenRecord) model.TokenRecord {
	now := s.now()

	rec := model.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresIn > 0:
		rec.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second).UnixMilli()
	case !tok.Expiry.IsZero():
		rec.ExpiresAt = tok.Expiry.UnixMilli()
	default:
		rec.ExpiresAt = now.UnixMilli()
	}
	if v, ok := tok.Extra("user_id").(string); ok {
		rec.UserID = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		rec.Scope = strings.Fields(v)
	}

	if prev != nil {
		if rec.RefreshToken == "" {
			rec.RefreshToken = prev.RefreshToken
		}
		if rec.UserID == "" {
			rec.UserID = prev.UserID
		}
		if len(rec.Scope) == 0 {
			rec.Scope = prev.Scope
		}
	}
	return rec
}

func (s *Service) save(ctx context.Context, sid string, rec model.TokenRecord) error {
	if err := s.tokens.PutTokens(ctx, sid, rec); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	meta := model.SessionMeta{Scope: rec.Scope, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}
	if err := s.tokens.PutMeta(ctx, sid, meta); err != nil {
		return fmt.Errorf("failed to store session meta: %w", err)
	}
	return nil
}

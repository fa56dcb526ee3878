package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gardusio/coach-client/internal/crypto"
	"github.com/Gardusio/coach-client/internal/model"
)

const namespace = "fitbit_sessions"

// TokensKey is the key of a session's token record.
func TokensKey(sid string) string {
	return fmt.Sprintf("%s:%s:tokens", namespace, sid)
}

// MetaKey is the key of a session's metadata.
func MetaKey(sid string) string {
	return fmt.Sprintf("%s:%s:meta", namespace, sid)
}

// PendingKey is the key of a session's in-flight authorization attempt.
func PendingKey(sid string) string {
	return fmt.Sprintf("%s:%s:pkce", namespace, sid)
}

// TokenStore is the session-keyed repository for Fitbit credentials.
// Token records and pending attempts are sealed with the Encryptor; metadata
// holds nothing secret and is stored as plain JSON.
type TokenStore struct {
	kv         KV
	enc        crypto.Encryptor
	tokenTTL   time.Duration
	pendingTTL time.Duration
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(kv KV, enc crypto.Encryptor, tokenTTL, pendingTTL time.Duration) *TokenStore {
	return &TokenStore{
		kv:         kv,
		enc:        enc,
		tokenTTL:   tokenTTL,
		pendingTTL: pendingTTL,
	}
}

func (s *TokenStore) putSealed(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	sealed, err := s.enc.Encrypt(ctx, string(raw))
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, []byte(sealed), ttl)
}

func (s *TokenStore) openSealed(ctx context.Context, sealed []byte, v any) error {
	raw, err := s.enc.Decrypt(ctx, string(sealed))
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// GetTokens returns the session's token record or ErrNotFound.
func (s *TokenStore) GetTokens(ctx context.Context, sid string) (*model.TokenRecord, error) {
	sealed, err := s.kv.Get(ctx, TokensKey(sid))
	if err != nil {
		return nil, err
	}
	var rec model.TokenRecord
	if err := s.openSealed(ctx, sealed, &rec); err != nil {
		return nil, fmt.Errorf("token record: %w", err)
	}
	return &rec, nil
}

// PutTokens replaces the session's token record in a single write.
func (s *TokenStore) PutTokens(ctx context.Context, sid string, rec model.TokenRecord) error {
	return s.putSealed(ctx, TokensKey(sid), rec, s.tokenTTL)
}

// GetMeta returns the session metadata or ErrNotFound.
func (s *TokenStore) GetMeta(ctx context.Context, sid string) (*model.SessionMeta, error) {
	raw, err := s.kv.Get(ctx, MetaKey(sid))
	if err != nil {
		return nil, err
	}
	var meta model.SessionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("session meta: failed to unmarshal: %w", err)
	}
	return &meta, nil
}

// PutMeta stores the session metadata.
func (s *TokenStore) PutMeta(ctx context.Context, sid string, meta model.SessionMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal session meta: %w", err)
	}
	return s.kv.Set(ctx, MetaKey(sid), raw, s.tokenTTL)
}

// PutPending stores an authorization attempt, replacing any earlier one.
func (s *TokenStore) PutPending(ctx context.Context, sid string, p model.PendingAuth) error {
	return s.putSealed(ctx, PendingKey(sid), p, s.pendingTTL)
}

// TakePending consumes the session's pending attempt. A second call returns
// ErrNotFound.
func (s *TokenStore) TakePending(ctx context.Context, sid string) (*model.PendingAuth, error) {
	sealed, err := s.kv.Take(ctx, PendingKey(sid))
	if err != nil {
		return nil, err
	}
	var p model.PendingAuth
	if err := s.openSealed(ctx, sealed, &p); err != nil {
		return nil, fmt.Errorf("pending auth: %w", err)
	}
	return &p, nil
}

// HasPending reports whether an authorization attempt is waiting for its
// callback, without consuming it.
func (s *TokenStore) HasPending(ctx context.Context, sid string) (bool, error) {
	_, err := s.kv.Get(ctx, PendingKey(sid))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every record held for the session. All deletes are attempted
// and their errors joined.
func (s *TokenStore) Clear(ctx context.Context, sid string) error {
	var errs []error
	for _, key := range []string{TokensKey(sid), MetaKey(sid), PendingKey(sid)} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package session

import (
	"context"
	"errors"
	"time"

	"github.com/Gardusio/coach-client/internal/model"
)

// DefaultTTL bounds how long a crashed refresh can hold a session's lock.
const DefaultTTL = 30 * time.Second

var (
	// ErrLocked is returned when another owner holds a live lock.
	ErrLocked = errors.New("session is locked by another refresh")
	// ErrNotOwner is returned when releasing a lock that is gone or held by someone else.
	ErrNotOwner = errors.New("lock not found or not owned")
)

// Locker serializes token refreshes per session.
// Fitbit rotates refresh tokens, so two concurrent refreshes would burn the
// token the second one is about to use.
type Locker interface {
	// AcquireLock takes the session's lock for owner. It succeeds when no lock
	// exists, the existing one has expired, or owner already holds it.
	AcquireLock(ctx context.Context, sessionID, owner string) (*model.RefreshLock, error)

	// ReleaseLock removes the lock if owner holds it.
	ReleaseLock(ctx context.Context, sessionID, owner string) error
}

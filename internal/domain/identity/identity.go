// Package identity models the caller identity that every cart and order
// operation requires. Issuing and verifying it belongs to the authentication
// service; this package only carries it.
package identity

import (
	"context"
	"strings"

	"github.com/erp/storefront/internal/domain/shared"
)

// Identity is the bearer token and user id of the current caller.
// It is read-only for the storefront core.
type Identity struct {
	Token  string
	UserID string
}

// New builds an Identity from raw values, trimming surrounding whitespace.
func New(token, userID string) Identity {
	return Identity{
		Token:  strings.TrimSpace(token),
		UserID: strings.TrimSpace(userID),
	}
}

// Validate returns ErrIdentityMissing unless both token and user id are present.
func (i Identity) Validate() error {
	if i.Token == "" || i.UserID == "" {
		return shared.ErrIdentityMissing
	}
	return nil
}

// IsPresent reports whether the identity can be used for an upstream call.
func (i Identity) IsPresent() bool {
	return i.Validate() == nil
}

// SessionListener is told when an upstream rejects a token with 401.
// Implementations must not block.
type SessionListener interface {
	SessionInvalidated(ctx context.Context, token string)
}

// SessionListenerFunc adapts a function to SessionListener.
type SessionListenerFunc func(ctx context.Context, token string)

// SessionInvalidated calls f.
func (f SessionListenerFunc) SessionInvalidated(ctx context.Context, token string) {
	f(ctx, token)
}

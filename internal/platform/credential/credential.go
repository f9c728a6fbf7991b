// Package credential connects outbound record-store calls to the cached identity
// without letting transports write it: they read the bearer token and report
// rejected credentials back to the owner.
package credential

import (
	"context"

	apperrors "readjourney/internal/platform/errors"
)

type Source interface {
	BearerToken() string
}

// Invalidator drops the cached identity after the backend rejected its token.
type Invalidator interface {
	Invalidate(ctx context.Context, cause error)
}

type Store interface {
	Source
	Invalidator
}

// Guard forwards unauthorized errors to inv and returns err unchanged.
func Guard(ctx context.Context, inv Invalidator, err error) error {
	if err != nil && inv != nil && apperrors.IsUnauthorized(err) {
		inv.Invalidate(ctx, err)
	}
	return err
}

// Static is a fixed token with no invalidation hook.
type Static string

func (s Static) BearerToken() string { return string(s) }

func (Static) Invalidate(context.Context, error) {}

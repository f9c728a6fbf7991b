package in

import (
	"context"

	"readjourney/internal/modules/identity/dto"
)

type Usecase interface {
	Register(ctx context.Context, input dto.RegisterInput) (dto.IdentityOutput, error)
	Login(ctx context.Context, input dto.LoginInput) (dto.IdentityOutput, error)
	Logout(ctx context.Context) error
	// Restore loads the cached identity and reconciles it with the provider
	// when one is configured.
	Restore(ctx context.Context) (dto.IdentityOutput, error)
	Current(ctx context.Context) dto.IdentityOutput
	// WhoAmI asks the record store which user the cached token belongs to.
	WhoAmI(ctx context.Context) (dto.UserOutput, error)
	// Listen applies provider events until ctx ends. Events arriving after
	// that are dropped.
	Listen(ctx context.Context) error
	Subscribe() (<-chan dto.IdentityOutput, func())
}

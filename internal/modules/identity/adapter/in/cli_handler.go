package in

import (
	"context"

	"readjourney/internal/modules/identity/dto"
	identityin "readjourney/internal/modules/identity/port/in"
)

type CLIHandler struct {
	usecase identityin.Usecase
}

func NewCLIHandler(usecase identityin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Register(ctx context.Context, name, email, password string) (dto.IdentityOutput, error) {
	return h.usecase.Register(ctx, dto.RegisterInput{Name: name, Email: email, Password: password})
}

func (h CLIHandler) Login(ctx context.Context, email, password string) (dto.IdentityOutput, error) {
	return h.usecase.Login(ctx, dto.LoginInput{Email: email, Password: password})
}

func (h CLIHandler) Logout(ctx context.Context) error {
	return h.usecase.Logout(ctx)
}

func (h CLIHandler) Restore(ctx context.Context) (dto.IdentityOutput, error) {
	return h.usecase.Restore(ctx)
}

func (h CLIHandler) Status(ctx context.Context) dto.IdentityOutput {
	return h.usecase.Current(ctx)
}

func (h CLIHandler) WhoAmI(ctx context.Context) (dto.UserOutput, error) {
	return h.usecase.WhoAmI(ctx)
}

// Watch applies provider events and reports every identity change to onChange
// until ctx ends.
func (h CLIHandler) Watch(ctx context.Context, onChange func(dto.IdentityOutput)) error {
	updates, cancel := h.usecase.Subscribe()
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range updates {
			onChange(update)
		}
	}()
	err := h.usecase.Listen(ctx)
	cancel()
	<-done
	return err
}

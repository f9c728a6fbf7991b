package dto

type RegisterInput struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=7"`
}

type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=7"`
}

type UserOutput struct {
	ID          string
	DisplayName string
	Email       string
}

type IdentityOutput struct {
	Authenticated bool
	State         string
	TokenSource   string
	Version       uint64
	User          *UserOutput
}

package dto

// LoginRequest carries the credentials presented to the login endpoint. The
// login field accepts a username or an email address.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse returns the signed token alongside an actor summary.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

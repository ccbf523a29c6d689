package autherr

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")

	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token is expired")

	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidPasswordFormat = errors.New("password does not meet complexity requirements")
	ErrEmailAlreadyConfirmed = errors.New("email already confirmed")
	ErrInvalidRequest        = errors.New("invalid request")
)

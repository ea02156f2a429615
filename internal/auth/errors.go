package auth

import "errors"

var (
	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken indicates a structurally valid token past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")

	// ErrForbidden indicates the caller is authenticated but the role does
	// not grant the requested operation.
	ErrForbidden = errors.New("auth: forbidden")
)

package jwt

import "errors"

var (
	ErrInvalidConfig    = errors.New("jwt: invalid config")
	ErrInvalidToken     = errors.New("jwt: invalid token")
	ErrExpiredToken     = errors.New("jwt: token expired")
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	ErrMissingSubject   = errors.New("jwt: missing subject")
)

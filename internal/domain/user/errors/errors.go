package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidOrUsedToken = errors.New("reset token is invalid, expired or already used")
	ErrUnavailable        = errors.New("service unavailable")
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, context, err)
}

// WrapUnavailable marks a dependency failure (store, cache, broker) as
// transient. The original cause stays in the chain.
func WrapUnavailable(err error, context string) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, context, err)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsDuplicateEmail(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}

// IsInvalidToken reports both malformed and expired session tokens.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken)
}

func IsExpiredToken(err error) bool {
	return errors.Is(err, ErrExpiredToken)
}

func IsInvalidOrUsedToken(err error) bool {
	return errors.Is(err, ErrInvalidOrUsedToken)
}

// IsUnavailable is true for explicit unavailability and for request deadlines.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

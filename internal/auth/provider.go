// Package auth defines the identity provider contract and a local
// credential-backed implementation of it.
package auth

import (
	"context"
	"errors"
)

// Session identifies a signed-in account.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Provider is the identity surface the state core depends on. Session
// observers fire with the current session immediately on registration and
// again on every sign-in and sign-out, with nil meaning signed out.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	DeleteCurrentAccount(ctx context.Context) error
	CurrentSession() *Session
	ObserveSession(fn func(*Session)) (cancel func())
}

var (
	ErrInvalidEmail      = errors.New("auth: invalid email")
	ErrUserNotFound      = errors.New("auth: user not found")
	ErrWrongPassword     = errors.New("auth: wrong password")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrEmailInUse        = errors.New("auth: email already in use")
	ErrNetwork           = errors.New("auth: network request failed")
)

// Message maps a provider error to the message shown to the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid email or password"
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email"
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password"
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email address"
	case errors.Is(err, ErrEmailInUse):
		return "An account with this email already exists"
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection"
	default:
		return "Failed to log in"
	}
}

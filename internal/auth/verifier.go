package auth

import (
	"context"
)

// Profile carries the identity claims extracted from a verified token.
type Profile struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// TokenVerifier validates a bearer token and returns its profile.
// Production uses the Firebase implementation; tests substitute stubs.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Profile, error)
}

// EnsureFunc resolves a verified profile to a local user row, creating
// it on first login.
type EnsureFunc func(ctx context.Context, p Profile) (Actor, error)

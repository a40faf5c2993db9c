package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is the external identity store's view of a user. Password
// verification and storage live entirely in that collaborator.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	TenantID    uuid.UUID
	Roles       []string
	// Permissions are direct grants independent of roles.
	Permissions []string
}

// IdentityStore verifies credentials and resolves identities. Implementations
// must return ErrInvalidCredentials for both unknown users and wrong
// passwords so login cannot be used to enumerate accounts.
type IdentityStore interface {
	VerifyCredentials(ctx context.Context, email, password string) (*Identity, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*Identity, error)
	MarkLoggedIn(ctx context.Context, userID uuid.UUID) error
}

package services

import (
	"time"

	"github.com/google/uuid"
)

type UserLoggedInEvent struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	IP       string
	At       time.Time
}

type TokenRotatedEvent struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	IP       string
	At       time.Time
}

// TokenReuseDetectedEvent signals a refresh attempt with an already-revoked
// token; the whole family has been revoked in response.
type TokenReuseDetectedEvent struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	IP       string
	At       time.Time
}

type UserLoggedOutEvent struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	At       time.Time
}

type TenantSettingsUpdatedEvent struct {
	TenantID uuid.UUID
	Settings map[string]string
}

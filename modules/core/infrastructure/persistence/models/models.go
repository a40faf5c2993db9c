package models

import (
	"database/sql"
	"time"
)

type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Settings  []byte
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           string
	TenantID     string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	Permissions  []string
	LastLoginAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshToken struct {
	ID             string
	UserID         string
	TenantID       string
	TokenHash      string
	ExpiresAt      time.Time
	IsRevoked      bool
	RevokedAt      sql.NullTime
	RevokedByIP    sql.NullString
	ReplacedByHash sql.NullString
	CreatedAt      time.Time
	CreatedByIP    sql.NullString
	UserAgent      sql.NullString
}

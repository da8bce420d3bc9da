package apikey

import (
	"time"

	"github.com/google/uuid"
)

type Scope string

const (
	// ScopeValidate lets the desktop application check license keys.
	ScopeValidate Scope = "validate"
	// ScopeAdmin grants every license route, including validate.
	ScopeAdmin Scope = "admin"
)

func (s Scope) Valid() bool {
	return s == ScopeValidate || s == ScopeAdmin
}

// Allows reports whether a key with scope s may call a route requiring required.
func (s Scope) Allows(required Scope) bool {
	return s == ScopeAdmin || s == required
}

type APIKey struct {
	ID          uuid.UUID  `db:"id"`
	KeyHash     string     `db:"key_hash"`
	Prefix      string     `db:"prefix"`
	Description string     `db:"description"`
	Scope       Scope      `db:"scope"`
	IsEnabled   bool       `db:"is_enabled"`
	CreatedAt   time.Time  `db:"created_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
}

const (
	APIKeyPrefixLength = 8
	APIKeySecretLength = 32
	APIKeyTag          = "lk"
	APIKeyFormat       = APIKeyTag + "_%s_%s"
)

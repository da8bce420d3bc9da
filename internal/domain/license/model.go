package license

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxDevices is the activation cap for every license sold through checkout.
const DefaultMaxDevices = 3

type License struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	LicenseKey    string         `db:"license_key" json:"license_key"`
	PurchaseEmail string         `db:"purchase_email" json:"purchase_email"`
	CustomerName  sql.NullString `db:"customer_name" json:"customer_name,omitempty"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	MaxDevices    int            `db:"max_devices" json:"max_devices"`
	// Notes carries the Stripe checkout session id the license was issued for.
	Notes     sql.NullString `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SessionID returns the correlated checkout session, or "" for licenses
// created outside checkout.
func (l *License) SessionID() string {
	if !l.Notes.Valid {
		return ""
	}
	return l.Notes.String
}

type ListParams struct {
	PurchaseEmail *string
	IsActive      *bool
	Limit         int
	Offset        int
}

type Stats struct {
	Total     int64
	Active    int64
	Inactive  int64
	IssuedDay int64
}

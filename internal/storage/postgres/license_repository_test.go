package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueCreateError(t *testing.T) {
	lic := &license.License{
		LicenseKey: "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD",
		Notes:      sql.NullString{String: "cs_test_1", Valid: true},
	}

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{
			name:   "license key collision",
			err:    &pgconn.PgError{Code: uniqueViolation, ConstraintName: licenseKeyConstraint},
			wantIs: license.ErrDuplicateKey,
		},
		{
			name:   "session already licensed",
			err:    &pgconn.PgError{Code: uniqueViolation, ConstraintName: sessionConstraint},
			wantIs: license.ErrDuplicateSession,
		},
		{
			name:   "wrapped by the driver",
			err:    fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: sessionConstraint}),
			wantIs: license.ErrDuplicateSession,
		},
		{
			name:    "other postgres error",
			err:     &pgconn.PgError{Code: "23502", ConstraintName: "licenses_purchase_email_not_null"},
			wantNil: true,
		},
		{
			name:    "connection error",
			err:     errors.New("conn closed"),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniqueCreateError(tt.err, lic)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.wantIs)
		})
	}
}

func TestUniqueCreateErrorUnknownConstraint(t *testing.T) {
	err := uniqueCreateError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "licenses_other_key"}, &license.License{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, license.ErrDuplicateKey)
	assert.NotErrorIs(t, err, license.ErrDuplicateSession)
	assert.Contains(t, err.Error(), "licenses_other_key")
}

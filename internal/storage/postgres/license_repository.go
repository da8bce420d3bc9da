package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"go.uber.org/zap"
)

const licenseColumns = `id, license_key, purchase_email, customer_name, is_active, max_devices, notes, created_at`

const (
	uniqueViolation = "23505"

	licenseKeyConstraint = "licenses_license_key_key"
	sessionConstraint    = "licenses_notes_key"
)

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	query := `
        INSERT INTO licenses (
            license_key, purchase_email, customer_name, is_active, max_devices, notes
        ) VALUES (
            $1, $2, $3, $4, $5, $6
        ) RETURNING id, created_at
    `

	err := r.db.QueryRow(ctx, query,
		lic.LicenseKey,
		lic.PurchaseEmail,
		lic.CustomerName,
		lic.IsActive,
		lic.MaxDevices,
		lic.Notes,
	).Scan(&lic.ID, &lic.CreatedAt)

	if err != nil {
		if dupErr := uniqueCreateError(err, lic); dupErr != nil {
			r.logger.Warn("License insert hit a unique constraint",
				zap.String("license_key", lic.LicenseKey),
				zap.String("session_id", lic.SessionID()),
				zap.Error(dupErr),
			)
			return uuid.Nil, dupErr
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Info("License created successfully", zap.String("id", lic.ID.String()))
	return lic.ID, nil
}

// uniqueCreateError maps a unique violation on insert to the domain sentinel
// for the constraint that fired. It returns nil for any other error.
func uniqueCreateError(err error, lic *license.License) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case sessionConstraint:
		return fmt.Errorf("%w: %s", license.ErrDuplicateSession, lic.SessionID())
	case licenseKeyConstraint:
		return fmt.Errorf("%w: %s", license.ErrDuplicateKey, lic.LicenseKey)
	default:
		return fmt.Errorf("license constraint violation (%s): %w", pgErr.ConstraintName, err)
	}
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE license_key = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, key))
}

// FindBySessionID returns the license issued for a checkout session.
func (r *LicenseRepository) FindBySessionID(ctx context.Context, sessionID string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE notes = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, sessionID))
}

func (r *LicenseRepository) List(ctx context.Context, params license.ListParams) ([]*license.License, int64, error) {
	var (
		conds []string
		args  []any
	)
	if params.PurchaseEmail != nil {
		args = append(args, strings.ToLower(*params.PurchaseEmail))
		conds = append(conds, fmt.Sprintf("LOWER(purchase_email) = $%d", len(args)))
	}
	if params.IsActive != nil {
		args = append(args, *params.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM licenses`+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on count licenses: %w", err)
	}

	listArgs := append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM licenses%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		licenseColumns, where, len(listArgs)-1, len(listArgs))

	rows, err := r.db.Query(ctx, query, listArgs...)
	if err != nil {
		r.logger.Error("Failed to query list of licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)
	for rows.Next() {
		lic, err := r.scanLicense(rows)
		if err != nil {
			return nil, 0, err
		}
		licenses = append(licenses, lic)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating license rows", zap.Error(err))
		return nil, 0, fmt.Errorf("database iteration error on list licenses: %w", err)
	}

	return licenses, total, nil
}

func (r *LicenseRepository) SetActive(ctx context.Context, key string, active bool) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE licenses SET is_active = $1 WHERE license_key = $2`, active, key)
	if err != nil {
		r.logger.Error("Failed to update license status", zap.String("license_key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", license.ErrUpdateFailed, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("License status update affected no rows", zap.String("license_key", key))
		return license.ErrNotFound
	}

	r.logger.Info("License status updated", zap.String("license_key", key), zap.Bool("is_active", active))
	return nil
}

func (r *LicenseRepository) Stats(ctx context.Context) (*license.Stats, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE is_active),
            COUNT(*) FILTER (WHERE NOT is_active),
            COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours')
        FROM licenses
    `
	var s license.Stats
	if err := r.db.QueryRow(ctx, query).Scan(&s.Total, &s.Active, &s.Inactive, &s.IssuedDay); err != nil {
		r.logger.Error("Failed to aggregate license stats", zap.Error(err))
		return nil, fmt.Errorf("database error on license stats: %w", err)
	}
	return &s, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := row.Scan(
		&lic.ID,
		&lic.LicenseKey,
		&lic.PurchaseEmail,
		&lic.CustomerName,
		&lic.IsActive,
		&lic.MaxDevices,
		&lic.Notes,
		&lic.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &lic, nil
}

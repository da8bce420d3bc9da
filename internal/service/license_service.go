package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/handler/dto"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/util"
	"go.uber.org/zap"
)

type DeliveryEnqueuer interface {
	EnqueueDelivery(ctx context.Context, licenseKey string) (string, error)
}

const (
	ReasonNotFound      = "license_not_found"
	ReasonInactive      = "license_inactive"
	ReasonEmailMismatch = "email_mismatch"
	ReasonTokenInvalid  = "token_invalid"
)

type LicenseService struct {
	repo     license.Repository
	enqueuer DeliveryEnqueuer
	tokens   *util.ActivationTokenIssuer
	logger   *zap.Logger
}

func NewLicenseService(repo license.Repository, enqueuer DeliveryEnqueuer, tokens *util.ActivationTokenIssuer, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		repo:     repo,
		enqueuer: enqueuer,
		tokens:   tokens,
		logger:   logger.Named("LicenseService"),
	}
}

func (s *LicenseService) GetLicenseByKey(ctx context.Context, key string) (*license.License, error) {
	lic, err := s.repo.FindByKey(ctx, license.NormalizeKey(key))
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %s", ierr.ErrNotFound, key)
		}
		s.logger.Error("Failed to load license", zap.Error(err))
		return nil, fmt.Errorf("repository error loading license: %w", err)
	}
	return lic, nil
}

func (s *LicenseService) ListLicenses(ctx context.Context, req *dto.ListLicensesRequest) ([]*license.License, int64, error) {
	params := license.ListParams{
		PurchaseEmail: req.Email,
		IsActive:      req.Active,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	licenses, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("repository error listing licenses: %w", err)
	}
	return licenses, total, nil
}

func (s *LicenseService) SetLicenseActive(ctx context.Context, key string, active bool) error {
	key = license.NormalizeKey(key)
	if err := s.repo.SetActive(ctx, key, active); err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return fmt.Errorf("%w: license %s", ierr.ErrNotFound, key)
		}
		return fmt.Errorf("repository error updating license: %w", err)
	}
	s.logger.Info("License status changed", zap.String("license_key", key), zap.Bool("is_active", active))
	return nil
}

func (s *LicenseService) GetSummary(ctx context.Context) (*dto.LicenseSummaryResponse, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository error loading stats: %w", err)
	}
	return &dto.LicenseSummaryResponse{
		TotalLicenses:    stats.Total,
		ActiveLicenses:   stats.Active,
		InactiveLicenses: stats.Inactive,
		IssuedLast24h:    stats.IssuedDay,
	}, nil
}

// ResendLicense queues another delivery of an existing key to its purchase
// email. This is the reconciliation path for licenses whose first email failed.
func (s *LicenseService) ResendLicense(ctx context.Context, key string) (string, error) {
	lic, err := s.GetLicenseByKey(ctx, key)
	if err != nil {
		return "", err
	}
	if !lic.IsActive {
		return "", fmt.Errorf("%w: license is inactive", ierr.ErrConflict)
	}

	taskID, err := s.enqueuer.EnqueueDelivery(ctx, lic.LicenseKey)
	if err != nil {
		return "", err
	}
	return taskID, nil
}

// ValidateLicense checks a key presented by the desktop application. Unknown,
// inactive and mismatched keys are reported as invalid, not as errors.
func (s *LicenseService) ValidateLicense(ctx context.Context, req *dto.ValidateLicenseRequest) (*dto.ValidateLicenseResponse, error) {
	lic, err := s.repo.FindByKey(ctx, license.NormalizeKey(req.LicenseKey))
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			s.logger.Info("Validation for unknown license key")
			return &dto.ValidateLicenseResponse{IsValid: false, Reason: ReasonNotFound}, nil
		}
		s.logger.Error("Failed to load license for validation", zap.Error(err))
		return nil, fmt.Errorf("repository error validating license: %w", err)
	}

	if !strings.EqualFold(strings.TrimSpace(req.Email), lic.PurchaseEmail) {
		s.logger.Warn("License validation email mismatch", zap.String("license_id", lic.ID.String()))
		return &dto.ValidateLicenseResponse{IsValid: false, Reason: ReasonEmailMismatch}, nil
	}
	if !lic.IsActive {
		return &dto.ValidateLicenseResponse{IsValid: false, Reason: ReasonInactive}, nil
	}

	resp := &dto.ValidateLicenseResponse{
		IsValid:    true,
		MaxDevices: &lic.MaxDevices,
	}

	if s.tokens.Enabled() {
		token, expiresAt, err := s.tokens.Issue(lic)
		if err != nil {
			s.logger.Error("Failed to issue activation token", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}
		resp.ActivationToken = token
		resp.ExpiresAt = &expiresAt
	}

	s.logger.Debug("License validated", zap.String("license_id", lic.ID.String()))
	return resp, nil
}

// VerifyActivationToken checks a token cached by the desktop application. The
// signature and expiry are not enough: the license must still exist, be
// active and belong to the email the token was issued for.
func (s *LicenseService) VerifyActivationToken(ctx context.Context, token string) (*dto.VerifyTokenResponse, error) {
	if !s.tokens.Enabled() {
		return nil, fmt.Errorf("%w: activation tokens are not configured", ierr.ErrConflict)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.Info("Rejected activation token", zap.Error(err))
		return &dto.VerifyTokenResponse{IsValid: false, Reason: ReasonTokenInvalid}, nil
	}

	lic, err := s.repo.FindByKey(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return &dto.VerifyTokenResponse{IsValid: false, Reason: ReasonNotFound}, nil
		}
		s.logger.Error("Failed to load license for token verification", zap.Error(err))
		return nil, fmt.Errorf("repository error verifying token: %w", err)
	}

	if !strings.EqualFold(claims.Email, lic.PurchaseEmail) {
		return &dto.VerifyTokenResponse{IsValid: false, Reason: ReasonEmailMismatch}, nil
	}
	if !lic.IsActive {
		return &dto.VerifyTokenResponse{IsValid: false, Reason: ReasonInactive}, nil
	}

	resp := &dto.VerifyTokenResponse{
		IsValid:    true,
		LicenseKey: lic.LicenseKey,
		MaxDevices: &lic.MaxDevices,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = &claims.ExpiresAt.Time
	}
	return resp, nil
}

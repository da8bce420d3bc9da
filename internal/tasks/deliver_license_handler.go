package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/metrics"
	"go.uber.org/zap"
)

type LicenseMailer interface {
	SendLicense(ctx context.Context, lic *license.License) (string, error)
}

type LicenseDeliverHandler struct {
	repo   license.Repository
	mailer LicenseMailer
	logger *zap.Logger
}

func NewLicenseDeliverHandler(repo license.Repository, mailer LicenseMailer, logger *zap.Logger) *LicenseDeliverHandler {
	return &LicenseDeliverHandler{
		repo:   repo,
		mailer: mailer,
		logger: logger.Named("LicenseDeliverHandler"),
	}
}

func (h *LicenseDeliverHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeLicenseDeliver {
		return fmt.Errorf("unexpected task type: %s: %w", t.Type(), asynq.SkipRetry)
	}

	var p DeliverLicensePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for license delivery task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	lic, err := h.repo.FindByKey(ctx, p.LicenseKey)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			h.logger.Warn("License for delivery task no longer exists", zap.String("license_key", p.LicenseKey))
			return fmt.Errorf("license %s not found: %w", p.LicenseKey, asynq.SkipRetry)
		}
		return fmt.Errorf("repository error loading license: %w", err)
	}

	if !lic.IsActive {
		h.logger.Info("Skipping delivery of inactive license", zap.String("license_key", lic.LicenseKey))
		return nil
	}

	if _, err := h.mailer.SendLicense(ctx, lic); err != nil {
		metrics.LicenseEmails.WithLabelValues("failed").Inc()
		return err
	}
	metrics.LicenseEmails.WithLabelValues("resent").Inc()

	h.logger.Info("License re-delivered", zap.String("license_key", lic.LicenseKey), zap.String("email", lic.PurchaseEmail))
	return nil
}

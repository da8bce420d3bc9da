// Package mail delivers license keys to buyers through Resend.
package mail

import (
	"context"
	"fmt"

	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// EmailSender is the part of the Resend emails service in use.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	emails EmailSender
	cfg    config.MailConfig
	logger *zap.Logger
}

func NewResendMailer(cfg *config.MailConfig, logger *zap.Logger) *ResendMailer {
	rc := resend.NewClient(cfg.APIKey)
	return NewMailer(rc.Emails, cfg, logger)
}

func NewMailer(emails EmailSender, cfg *config.MailConfig, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		emails: emails,
		cfg:    *cfg,
		logger: logger.Named("ResendMailer"),
	}
}

// SendLicense emails the key to the license's purchase address and returns
// the provider message id.
func (m *ResendMailer) SendLicense(ctx context.Context, lic *license.License) (string, error) {
	html, text, err := renderLicenseEmail(licenseEmailData{
		ProductName:  m.cfg.ProductName,
		CustomerName: lic.CustomerName.String,
		LicenseKey:   lic.LicenseKey,
		AppURL:       m.cfg.AppURL,
		MaxDevices:   lic.MaxDevices,
	})
	if err != nil {
		return "", err
	}

	resp, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.cfg.From,
		To:      []string{lic.PurchaseEmail},
		Subject: m.cfg.Subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		m.logger.Error("Resend rejected license email", zap.String("to", lic.PurchaseEmail), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrDeliveryFailed, err)
	}

	m.logger.Info("License email sent", zap.String("to", lic.PurchaseEmail), zap.String("message_id", resp.Id))
	return resp.Id, nil
}

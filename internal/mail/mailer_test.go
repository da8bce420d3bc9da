package mail

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (r *recordingSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, params)
	return &resend.SendEmailResponse{Id: "msg_1"}, nil
}

var mailCfg = &config.MailConfig{
	From:        "FontPair AI <licenses@fontpairai.com>",
	Subject:     "Your FontPair AI License Key",
	ProductName: "FontPair AI",
	AppURL:      "https://fontpairai.com/app",
}

func testLicense() *license.License {
	return &license.License{
		LicenseKey:    "7K2M9QXA-0PLD4R8T-ZC1N6VWB-H3YE5S0U",
		PurchaseEmail: "buyer@example.com",
		CustomerName:  sql.NullString{String: "Ada <b>Buyer</b>", Valid: true},
		IsActive:      true,
		MaxDevices:    3,
	}
}

func TestSendLicense(t *testing.T) {
	sender := &recordingSender{}
	m := NewMailer(sender, mailCfg, zap.NewNop())

	id, err := m.SendLicense(context.Background(), testLicense())
	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"buyer@example.com"}, msg.To)
	assert.Equal(t, mailCfg.From, msg.From)
	assert.Equal(t, mailCfg.Subject, msg.Subject)
	assert.Contains(t, msg.Html, "7K2M9QXA-0PLD4R8T-ZC1N6VWB-H3YE5S0U")
	assert.Contains(t, msg.Html, `href="https://fontpairai.com/app"`)
	assert.Contains(t, msg.Html, "Ada &lt;b&gt;Buyer&lt;/b&gt;")
	assert.Contains(t, msg.Text, "7K2M9QXA-0PLD4R8T-ZC1N6VWB-H3YE5S0U")
}

func TestSendLicenseProviderError(t *testing.T) {
	m := NewMailer(&recordingSender{err: errors.New("invalid api key")}, mailCfg, zap.NewNop())

	_, err := m.SendLicense(context.Background(), testLicense())
	assert.ErrorIs(t, err, ierr.ErrDeliveryFailed)
}

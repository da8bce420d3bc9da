package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

var stripeCfg = &config.StripeConfig{
	PriceID:    "price_123",
	SuccessURL: "https://fontpairai.com/success.html?session_id={CHECKOUT_SESSION_ID}",
	CancelURL:  "https://fontpairai.com/pricing.html",
}

func TestCreateCheckoutSessionParams(t *testing.T) {
	sessions := &fakeSessions{}
	gw := payment.NewCheckoutGateway(sessions, stripeCfg, zap.NewNop())

	sess, err := gw.CreateCheckoutSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)

	p := sessions.params
	require.NotNil(t, p)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, "price_123", *p.LineItems[0].Price)
	assert.Equal(t, int64(1), *p.LineItems[0].Quantity)
	assert.Equal(t, "payment", *p.Mode)
	assert.True(t, *p.AutomaticTax.Enabled)
	assert.Equal(t, stripeCfg.SuccessURL, *p.SuccessURL)
	assert.Equal(t, stripeCfg.CancelURL, *p.CancelURL)
}

func TestCreateCheckoutSessionGatewayError(t *testing.T) {
	sessions := &fakeSessions{err: &stripe.Error{Msg: "No such price: 'price_123'"}}
	gw := payment.NewCheckoutGateway(sessions, stripeCfg, zap.NewNop())

	_, err := gw.CreateCheckoutSession(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ierr.ErrGateway))
	assert.Contains(t, err.Error(), "No such price")
}

const whsec = "whsec_test_secret"

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestVerifyValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	v := payment.NewWebhookVerifier(whsec)

	evt, err := v.Verify(payload, sign(payload, whsec))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, stripe.EventTypeCheckoutSessionCompleted, evt.Type)
}

func TestVerifyRejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	v := payment.NewWebhookVerifier(whsec)

	_, err := v.Verify(payload, "")
	assert.ErrorIs(t, err, ierr.ErrSignatureMissing)

	_, err = v.Verify(payload, sign(payload, "whsec_other"))
	assert.ErrorIs(t, err, ierr.ErrSignatureInvalid)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-3] = 'X'
	_, err = v.Verify(tampered, sign(payload, whsec))
	assert.ErrorIs(t, err, ierr.ErrSignatureInvalid)
}

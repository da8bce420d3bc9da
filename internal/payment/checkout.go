// Package payment wraps the Stripe SDK calls the service makes: creating
// checkout sessions and verifying webhook signatures.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

// SessionCreator is the subset of the Stripe checkout session client in use.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type CheckoutSession struct {
	ID  string
	URL string
}

type CheckoutGateway struct {
	sessions SessionCreator
	cfg      config.StripeConfig
	logger   *zap.Logger
}

// NewStripeGateway builds a gateway on a dedicated Stripe API client, so the
// secret key is never stored in the SDK's global state.
func NewStripeGateway(cfg *config.StripeConfig, logger *zap.Logger) *CheckoutGateway {
	sc := client.New(cfg.SecretKey, nil)
	return NewCheckoutGateway(sc.CheckoutSessions, cfg, logger)
}

func NewCheckoutGateway(sessions SessionCreator, cfg *config.StripeConfig, logger *zap.Logger) *CheckoutGateway {
	return &CheckoutGateway{
		sessions: sessions,
		cfg:      *cfg,
		logger:   logger.Named("CheckoutGateway"),
	}
}

// CreateCheckoutSession opens a one-time payment session for the configured price.
func (g *CheckoutGateway) CreateCheckoutSession(ctx context.Context) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(true),
		},
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
	}
	params.Context = ctx

	sess, err := g.sessions.New(params)
	if err != nil {
		g.logger.Error("Stripe checkout session creation failed", zap.String("price_id", g.cfg.PriceID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ierr.ErrGateway, stripeMessage(err))
	}

	g.logger.Info("Checkout session created", zap.String("session_id", sess.ID))
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// stripeMessage prefers the human-readable message of a Stripe API error.
func stripeMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

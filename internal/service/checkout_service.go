package service

import (
	"context"

	"github.com/makkenzo/license-checkout-service/internal/metrics"
	"github.com/makkenzo/license-checkout-service/internal/payment"
	"go.uber.org/zap"
)

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context) (*payment.CheckoutSession, error)
}

type CheckoutService struct {
	gateway CheckoutGateway
	logger  *zap.Logger
}

func NewCheckoutService(gateway CheckoutGateway, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		logger:  logger.Named("CheckoutService"),
	}
}

// StartCheckout returns the Stripe-hosted page the buyer is redirected to.
func (s *CheckoutService) StartCheckout(ctx context.Context) (string, error) {
	sess, err := s.gateway.CreateCheckoutSession(ctx)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.CheckoutSessions.WithLabelValues("created").Inc()

	s.logger.Debug("Redirecting buyer to checkout", zap.String("session_id", sess.ID))
	return sess.URL, nil
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/license-checkout-service/internal/domain/purchase"
	"github.com/makkenzo/license-checkout-service/internal/handler/dto"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/metrics"
	"github.com/makkenzo/license-checkout-service/internal/payment"
	"github.com/makkenzo/license-checkout-service/internal/service"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBodyBytes = 65536

type EventVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type WebhookHandler struct {
	verifier EventVerifier
	service  *service.FulfillmentService
	logger   *zap.Logger
}

func NewWebhookHandler(verifier EventVerifier, service *service.FulfillmentService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		service:  service,
		logger:   logger.Named("WebhookHandler"),
	}
}

// Handle verifies a Stripe delivery against the raw body and runs it through
// license fulfillment. Only persistence failures answer 5xx.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.WebhookEvents.WithLabelValues("rejected").Inc()
			h.logger.Warn("Webhook payload too large", zap.Int64("limit", tooLarge.Limit))
			c.String(http.StatusRequestEntityTooLarge, "Webhook Error: payload too large (limit %d bytes)", tooLarge.Limit)
			return
		}
		h.reject(c, err)
		return
	}

	evt, err := h.verifier.Verify(payload, c.GetHeader(payment.SignatureHeader))
	if err != nil {
		h.reject(c, err)
		return
	}

	narrowed, err := purchase.Narrow(evt)
	if err != nil {
		h.reject(c, err)
		return
	}

	result, err := h.service.Process(c.Request.Context(), narrowed)
	if err != nil {
		if errors.Is(err, ierr.ErrPersistFailed) {
			c.JSON(http.StatusInternalServerError, dto.SimpleErrorResponse{Error: "Database error"})
			return
		}
		h.logger.Error("Unexpected fulfillment error", zap.String("event_id", evt.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.SimpleErrorResponse{Error: "Internal error"})
		return
	}

	h.logger.Debug("Webhook acknowledged", zap.String("event_id", evt.ID), zap.String("outcome", string(result.Outcome)))
	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}

func (h *WebhookHandler) reject(c *gin.Context, err error) {
	metrics.WebhookEvents.WithLabelValues("rejected").Inc()
	h.logger.Warn("Webhook rejected", zap.Error(err))
	c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
}

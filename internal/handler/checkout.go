package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/license-checkout-service/internal/handler/dto"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/service"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(service *service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.Named("CheckoutHandler"),
	}
}

// Create starts a Stripe checkout and returns the hosted page URL. The
// request body is ignored.
func (h *CheckoutHandler) Create(c *gin.Context) {
	url, err := h.service.StartCheckout(c.Request.Context())
	if err != nil {
		h.logger.Error("Stripe Error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.SimpleErrorResponse{Error: gatewayMessage(err)})
		return
	}

	c.JSON(http.StatusOK, dto.CheckoutResponse{URL: url})
}

// Preflight answers OPTIONS requests the CORS layer let through.
func (h *CheckoutHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// gatewayMessage strips the internal sentinel prefix so the browser sees
// Stripe's own message.
func gatewayMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, ierr.ErrGateway) {
		msg = strings.TrimPrefix(msg, ierr.ErrGateway.Error()+": ")
	}
	return msg
}

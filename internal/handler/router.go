package handler

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/makkenzo/license-checkout-service/internal/domain/apikey"
	"github.com/makkenzo/license-checkout-service/internal/handler/dto"
	"github.com/makkenzo/license-checkout-service/internal/handler/middleware"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Checkout       *CheckoutHandler
	Webhook        *WebhookHandler
	License        *LicenseHandler
	Health         *HealthHandler
	APIKeys        apikey.Repository
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		d.Logger.Error("Panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))
	router.Use(middleware.ErrorHandlerMiddleware(d.Logger))

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.SimpleErrorResponse{Error: "Method not allowed"})
	})

	router.GET("/healthz", d.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		checkout := api.Group("/create-checkout")
		if len(d.AllowedOrigins) > 0 {
			checkout.Use(cors.New(checkoutCORS(d.AllowedOrigins)))
		}
		checkout.POST("", d.Checkout.Create)
		checkout.OPTIONS("", d.Checkout.Preflight)

		api.POST("/stripe-webhook", d.Webhook.Handle)
	}

	licenseRoutes := router.Group("/api/v1/licenses")
	{
		validateAuth := middleware.APIKeyAuthMiddleware(d.APIKeys, apikey.ScopeValidate, d.Logger)
		licenseRoutes.POST("/validate", validateAuth, d.License.Validate)
		licenseRoutes.POST("/verify-token", validateAuth, d.License.VerifyToken)

		admin := licenseRoutes.Group("")
		admin.Use(middleware.APIKeyAuthMiddleware(d.APIKeys, apikey.ScopeAdmin, d.Logger))
		admin.GET("", d.License.List)
		admin.GET("/summary", d.License.Summary)
		admin.GET("/:key", d.License.GetByKey)
		admin.PATCH("/:key/status", d.License.UpdateStatus)
		admin.POST("/:key/resend", d.License.Resend)
	}

	return router
}

// checkoutCORS lets the marketing pages call the checkout endpoint from the
// browser. Stripe webhooks carry no Origin and are not affected.
func checkoutCORS(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

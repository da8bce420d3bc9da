package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makkenzo/license-checkout-service/internal/domain/apikey"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/util"
)

const (
	apiKeyHeader       = "X-API-Key"
	apiKeyIDContextKey = "apiKeyID"
	lastUsedTimeout    = 5 * time.Second
)

// APIKeyAuthMiddleware admits requests carrying an enabled key whose scope
// allows required.
func APIKeyAuthMiddleware(repo apikey.Repository, required apikey.Scope, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuthMiddleware")
	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		if presented == "" {
			log.Debug("API Key header is missing", zap.String("header", apiKeyHeader))
			abortWith(c, fmt.Errorf("%w: api key required", ierr.ErrUnauthorized))
			return
		}

		prefix, ok := util.ParseAPIKey(presented)
		if !ok {
			log.Warn("Invalid API key format received")
			abortWith(c, fmt.Errorf("%w: invalid api key format", ierr.ErrUnauthorized))
			return
		}

		keyRecord, err := repo.FindByPrefix(c.Request.Context(), prefix)
		if err != nil {
			if errors.Is(err, apikey.ErrAPIKeyNotFound) {
				log.Warn("API key not found or disabled", zap.String("prefix", prefix))
				abortWith(c, fmt.Errorf("%w: invalid or disabled api key", ierr.ErrForbidden))
				return
			}
			log.Error("Failed to query API key repository", zap.String("prefix", prefix), zap.Error(err))
			abortWith(c, fmt.Errorf("%w: api key validation failed", ierr.ErrInternalServer))
			return
		}

		receivedHash := util.HashAPIKey(presented)
		if subtle.ConstantTimeCompare([]byte(receivedHash), []byte(keyRecord.KeyHash)) != 1 {
			log.Warn("API key hash mismatch", zap.String("prefix", prefix), zap.String("key_id", keyRecord.ID.String()))
			abortWith(c, fmt.Errorf("%w: invalid or disabled api key", ierr.ErrForbidden))
			return
		}

		if !keyRecord.Scope.Allows(required) {
			log.Warn("API key scope too narrow",
				zap.String("key_id", keyRecord.ID.String()),
				zap.String("scope", string(keyRecord.Scope)),
				zap.String("required", string(required)),
			)
			abortWith(c, fmt.Errorf("%w: api key scope does not allow this route", ierr.ErrForbidden))
			return
		}

		go func(id uuid.UUID) {
			ctxAsync, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
			defer cancel()
			if errUpdate := repo.UpdateLastUsed(ctxAsync, id, time.Now().UTC()); errUpdate != nil {
				log.Error("Failed to update API key last used time asynchronously", zap.String("key_id", id.String()), zap.Error(errUpdate))
			}
		}(keyRecord.ID)

		c.Set(apiKeyIDContextKey, keyRecord.ID)
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

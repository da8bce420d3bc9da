package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/makkenzo/license-checkout-service/internal/domain/apikey"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/util"
	"go.uber.org/zap"
)

type CreatedAPIKey struct {
	ID      uuid.UUID
	FullKey string
	Prefix  string
	Scope   apikey.Scope
}

type APIKeyService struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		repo:   repo,
		logger: logger.Named("APIKeyService"),
	}
}

// CreateAPIKey stores a new key and returns the only copy of its plaintext.
func (s *APIKeyService) CreateAPIKey(ctx context.Context, description string, scope apikey.Scope) (*CreatedAPIKey, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: unknown scope %q", ierr.ErrValidation, scope)
	}

	fullKey, prefix, keyHash, err := util.GenerateAPIKey()
	if err != nil {
		s.logger.Error("Failed to generate api key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	insertedID, err := s.repo.Create(ctx, &apikey.APIKey{
		KeyHash:     keyHash,
		Prefix:      prefix,
		Description: description,
		Scope:       scope,
		IsEnabled:   true,
	})
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}

	s.logger.Info("API key created", zap.String("id", insertedID.String()), zap.String("prefix", prefix), zap.String("scope", string(scope)))
	return &CreatedAPIKey{ID: insertedID, FullKey: fullKey, Prefix: prefix, Scope: scope}, nil
}

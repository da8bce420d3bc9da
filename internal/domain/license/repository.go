package license

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("license not found")
	ErrDuplicateKey     = errors.New("license key already exists")
	// ErrDuplicateSession means a license for the checkout session already exists.
	ErrDuplicateSession = errors.New("license already issued for checkout session")
	ErrUpdateFailed     = errors.New("license update failed")
)

type Repository interface {
	Create(ctx context.Context, license *License) (uuid.UUID, error)
	FindByKey(ctx context.Context, key string) (*License, error)
	FindBySessionID(ctx context.Context, sessionID string) (*License, error)
	List(ctx context.Context, params ListParams) ([]*License, int64, error)
	SetActive(ctx context.Context, key string, active bool) error
	Stats(ctx context.Context) (*Stats, error)
}

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"go.uber.org/zap"
)

const (
	TypeLicenseDeliver = "license:deliver"

	deliverQueue    = "critical"
	deliverUnique   = 10 * time.Minute
	deliverMaxRetry = 5
)

type DeliverLicensePayload struct {
	LicenseKey string `json:"license_key"`
}

func NewDeliverLicenseTask(licenseKey string, opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(DeliverLicensePayload{LicenseKey: licenseKey})
	if err != nil {
		return nil, err
	}

	allOpts := append([]asynq.Option{
		asynq.Queue(deliverQueue),
		asynq.MaxRetry(deliverMaxRetry),
		asynq.Unique(deliverUnique),
	}, opts...)

	return asynq.NewTask(TypeLicenseDeliver, payloadBytes, allOpts...), nil
}

// Enqueuer puts out-of-band license re-deliveries on the queue.
type Enqueuer struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewEnqueuer(redisOpt asynq.RedisConnOpt, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{
		client: asynq.NewClient(redisOpt),
		logger: logger.Named("TaskEnqueuer"),
	}
}

func (e *Enqueuer) EnqueueDelivery(ctx context.Context, licenseKey string) (string, error) {
	task, err := NewDeliverLicenseTask(licenseKey)
	if err != nil {
		return "", fmt.Errorf("failed to build delivery task: %w", err)
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return "", fmt.Errorf("%w: delivery for this license is already queued", ierr.ErrConflict)
		}
		e.logger.Error("Failed to enqueue license delivery", zap.String("license_key", licenseKey), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrQueueUnavailable, err)
	}

	e.logger.Info("License delivery enqueued", zap.String("license_key", licenseKey), zap.String("task_id", info.ID))
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

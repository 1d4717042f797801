package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/models"
)

// EventPublisher delivers domain events after a commit.
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event events.OrderCompletedEvent) error
}

// CatalogCache caches catalog listings by name ("all", "discounts", ...).
// GetList reports the catalog version it looked under; SetList must be
// given the version from before the database read.
type CatalogCache interface {
	GetList(ctx context.Context, name string) (items []models.Item, version int64, hit bool, err error)
	SetList(ctx context.Context, name string, version int64, items []models.Item) error
	Invalidate(ctx context.Context) error
}

// IdempotencyStore remembers which order a checkout idempotency key
// produced.
type IdempotencyStore interface {
	Get(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error)
	Set(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error
}

// MetricsRecorder is the subset of the CloudWatch metrics client the
// services use.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// ImageSigner turns an object key into a time-limited download URL.
type ImageSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

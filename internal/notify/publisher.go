// Package notify announces stored readings to subscribers outside the process.
package notify

import (
	"context"

	"github.com/sebasr/vitals-service/internal/models"
)

// Publisher announces a stored reading
type Publisher interface {
	PublishReading(ctx context.Context, reading *models.VitalReading) error
	Close()
}

// NopPublisher discards every reading. It is used when no broker is configured.
type NopPublisher struct{}

// PublishReading implements Publisher
func (NopPublisher) PublishReading(context.Context, *models.VitalReading) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() {}

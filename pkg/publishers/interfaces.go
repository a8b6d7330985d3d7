package publishers

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers snapshot events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Builder constructs a Publisher for a validated config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log *zap.Logger) (Publisher, error)

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

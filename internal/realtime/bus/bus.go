package bus

import (
	"context"

	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

// Bus carries realtime messages between replicas.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

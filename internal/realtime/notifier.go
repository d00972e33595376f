package realtime

import (
	"context"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// Notifier is what services publish through; they never see the hub or the bus.
type Notifier interface {
	Notify(ctx context.Context, msg SSEMessage)
}

// Publisher is satisfied by bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

type hubNotifier struct {
	hub *SSEHub
}

// NewHubNotifier delivers straight to local subscribers (single replica).
func NewHubNotifier(hub *SSEHub) Notifier { return &hubNotifier{hub: hub} }

func (n *hubNotifier) Notify(_ context.Context, msg SSEMessage) {
	if n == nil || n.hub == nil {
		return
	}
	n.hub.Broadcast(msg)
}

type busNotifier struct {
	log *logger.Logger
	pub Publisher
	hub *SSEHub
}

// NewBusNotifier fans out through the bus so every replica's forwarder sees the
// message; on publish failure it falls back to local delivery.
func NewBusNotifier(log *logger.Logger, pub Publisher, hub *SSEHub) Notifier {
	return &busNotifier{log: log.With("component", "BusNotifier"), pub: pub, hub: hub}
}

func (n *busNotifier) Notify(ctx context.Context, msg SSEMessage) {
	if err := n.pub.Publish(ctx, msg); err != nil {
		n.log.Warn("bus publish failed; delivering locally", "channel", msg.Channel, "error", err)
		if n.hub != nil {
			n.hub.Broadcast(msg)
		}
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Notify(context.Context, SSEMessage) {}

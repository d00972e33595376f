package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := ChatChannel(uuid.NewString())

	clientA := hub.NewSSEClient("")
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventAgentStatus, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventChatMessage, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventAgentStatus {
		t.Fatalf("first event: want=%s got=%s", SSEEventAgentStatus, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventChatMessage {
		t.Fatalf("second event: want=%s got=%s", SSEEventChatMessage, got.Event)
	}

	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close=%d want 0", n)
	}

	clientB := hub.NewSSEClient("")
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventAgentStatus})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventAgentStatus {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	chat := hub.NewSSEClient("")
	flow := hub.NewSSEClient("")
	hub.AddChannel(chat, ChatChannel("s1"))
	hub.AddChannel(flow, WorkflowChannel("s1"))

	hub.Broadcast(SSEMessage{Channel: WorkflowChannel("s1"), Event: SSEEventWorkflowState})
	recvMessage(t, flow.Outbound, time.Second)
	select {
	case msg := <-chat.Outbound:
		t.Fatalf("chat client received workflow message %+v", msg)
	default:
	}
}

func TestSSEHubBroadcastDoesNotBlock(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	c := hub.NewSSEClient("")
	hub.AddChannel(c, "busy")
	done := make(chan struct{})
	go func() {
		for i := 0; i < outboundBuffer*3; i++ {
			hub.Broadcast(SSEMessage{Channel: "busy", Event: SSEEventChatMessage})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Broadcast blocked on a full client buffer")
	}
	if got := len(c.Outbound); got != outboundBuffer {
		t.Fatalf("buffered=%d want %d", got, outboundBuffer)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, SSEMessage) error { return errors.New("down") }

func TestBusNotifierFallsBackToHub(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewSSEHub(log)
	c := hub.NewSSEClient("")
	hub.AddChannel(c, ChatChannel("s"))
	n := NewBusNotifier(log, failingPublisher{}, hub)
	n.Notify(context.Background(), SSEMessage{Channel: ChatChannel("s"), Event: SSEEventChatMessage})
	recvMessage(t, c.Outbound, time.Second)
}

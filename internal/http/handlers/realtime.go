package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

const headerClientID = "X-SSE-Client-Id"

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/events?channel=chat:<id>&channel=workflow:<id>
// The client id comes back in X-SSE-Client-Id for later subscribe/unsubscribe calls.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	instructorID := ""
	if in := ctxutil.GetInstructor(c.Request.Context()); in != nil {
		instructorID = in.InstructorID
	}
	client := h.hub.NewSSEClient(instructorID)

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	for _, ch := range c.QueryArray("channel") {
		h.hub.AddChannel(client, ch)
	}
	c.Writer.Header().Set(headerClientID, client.ID.String())

	m := observability.Current()
	m.SSEClientConnected()
	h.log.Info("SSEStream open", "client_id", client.ID.String(), "channels", len(client.Channels))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	h.hub.CloseClient(client)
	m.SSEClientDisconnected()
}

type channelReq struct {
	ClientID string `json:"clientId" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
}

func (h *RealtimeHandler) bindClient(c *gin.Context) (*realtime.SSEClient, string, bool) {
	var req channelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return nil, "", false
	}
	id, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		badRequest(c, "invalid_client_id", err)
		return nil, "", false
	}
	h.mu.RLock()
	client, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		response.RespondError(c, http.StatusConflict, "no_stream", errors.New("no active SSE connection for this client"))
		return nil, "", false
	}
	return client, strings.TrimSpace(req.Channel), true
}

// POST /api/events/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.bindClient(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/events/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.bindClient(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

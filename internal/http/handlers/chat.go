package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
	lab  services.LessonLabService
}

func NewChatHandler(chat services.ChatService, lab services.LessonLabService) *ChatHandler {
	return &ChatHandler{chat: chat, lab: lab}
}

// POST /api/chat/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.chat.CreateSession(c.Request.Context()))
}

// GET /api/chat/sessions/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	snap, err := h.chat.Snapshot(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get_session_failed")
		return
	}
	response.RespondOK(c, snap)
}

// DELETE /api/chat/sessions/:id
func (h *ChatHandler) CloseSession(c *gin.Context) {
	h.chat.CloseSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type submitReq struct {
	Text string `json:"text"`
}

// POST /api/chat/sessions/:id/messages
func (h *ChatHandler) Submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	msg, err := h.chat.Submit(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		respondServiceError(c, err, "submit_failed")
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

type feedbackReq struct {
	Rating collab.Rating `json:"rating" binding:"required"`
}

// POST /api/chat/sessions/:id/messages/:messageId/feedback
func (h *ChatHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	msg, err := h.chat.SubmitFeedback(c.Request.Context(), c.Param("id"), c.Param("messageId"), req.Rating)
	if err != nil {
		respondServiceError(c, err, "feedback_failed")
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

// POST /api/chat/sessions/:id/messages/:messageId/optimize
func (h *ChatHandler) OptimizerAction(c *gin.Context) {
	msg, err := h.chat.OptimizerAction(c.Request.Context(), c.Param("id"), c.Param("messageId"))
	if err != nil {
		respondServiceError(c, err, "optimizer_action_failed")
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

type reviewReq struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// POST /api/lesson-plans/:id/review sends the plan (with saved notes) to the Evaluator.
func (h *ChatHandler) ReviewLessonPlan(c *gin.Context) {
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	plan, err := h.lab.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "review_failed")
		return
	}
	msg, err := h.chat.ReviewLessonPlan(c.Request.Context(), req.SessionID, plan)
	if err != nil {
		respondServiceError(c, err, "review_failed")
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/services"
)

type LessonLabHandler struct {
	lab services.LessonLabService
}

func NewLessonLabHandler(lab services.LessonLabService) *LessonLabHandler {
	return &LessonLabHandler{lab: lab}
}

// POST /api/lesson-plans
func (h *LessonLabHandler) Generate(c *gin.Context) {
	var req services.LessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	plan, err := h.lab.Generate(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "generate_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

// GET /api/lesson-plans?limit=20
func (h *LessonLabHandler) List(c *gin.Context) {
	limit := 20
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	plans, err := h.lab.List(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "list_failed")
		return
	}
	response.RespondOK(c, gin.H{"plans": plans})
}

// GET /api/lesson-plans/:id
func (h *LessonLabHandler) Get(c *gin.Context) {
	plan, err := h.lab.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get_failed")
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

type refineReq struct {
	Feedback string `json:"feedback"`
}

// POST /api/lesson-plans/:id/refine
func (h *LessonLabHandler) Refine(c *gin.Context) {
	var req refineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	plan, err := h.lab.Refine(c.Request.Context(), c.Param("id"), req.Feedback)
	if err != nil {
		respondServiceError(c, err, "refine_failed")
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

// GET /api/lesson-plans/:id/notes
func (h *LessonLabHandler) LoadNotes(c *gin.Context) {
	notes, found, err := h.lab.LoadNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "load_notes_failed")
		return
	}
	response.RespondOK(c, gin.H{"notes": notes, "found": found})
}

type notesReq struct {
	Notes *string `json:"notes" binding:"required"`
}

// PUT /api/lesson-plans/:id/notes
// With ?autosave=true the write is debounced and answered with 202.
func (h *LessonLabHandler) SaveNotes(c *gin.Context) {
	var req notesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	planID := c.Param("id")
	if autosave, _ := strconv.ParseBool(c.Query("autosave")); autosave {
		if err := h.lab.EditNotes(c.Request.Context(), planID, *req.Notes); err != nil {
			respondServiceError(c, err, "save_notes_failed")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"planId": planID, "pending": true})
		return
	}
	if err := h.lab.SaveNotes(c.Request.Context(), planID, *req.Notes); err != nil {
		respondServiceError(c, err, "save_notes_failed")
		return
	}
	response.RespondOK(c, gin.H{"planId": planID, "pending": false})
}

// POST /api/lesson-plans/:id/notes/flush
func (h *LessonLabHandler) FlushNotes(c *gin.Context) {
	h.lab.FlushNotes(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type exportReq struct {
	Notes *string `json:"notes"`
}

// GET or POST /api/lesson-plans/:id/export
// POST may carry the editor's current notes, which win over the saved ones.
func (h *LessonLabHandler) Export(c *gin.Context) {
	var req exportReq
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_request", err)
			return
		}
	}
	exp, err := h.lab.Export(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		respondServiceError(c, err, "export_failed")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
	if exp.ArchiveURI != "" {
		c.Header("X-Export-Archive", exp.ArchiveURI)
	}
	c.Data(http.StatusOK, exp.ContentType, exp.Body)
}

// GET /api/handoffs/:token consumes a one-shot handoff.
func (h *LessonLabHandler) TakeHandoff(c *gin.Context) {
	plan, err := h.lab.TakeHandoff(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondServiceError(c, err, "handoff_failed")
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/services"
	"github.com/yungbote/eduplanner-backend/internal/workflow"
)

type EvaluationHandler struct {
	eval services.EvaluationService
}

func NewEvaluationHandler(eval services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{eval: eval}
}

// GET /api/assets?filter=Quiz
func (h *EvaluationHandler) ListAssets(c *gin.Context) {
	filter := planning.AssetFilter(c.Query("filter"))
	assets, err := h.eval.ListAssets(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "list_assets_failed")
		return
	}
	response.RespondOK(c, gin.H{"assets": assets})
}

// GET /api/assets/:id
func (h *EvaluationHandler) GetAsset(c *gin.Context) {
	asset, err := h.eval.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get_asset_failed")
		return
	}
	response.RespondOK(c, gin.H{"asset": asset})
}

// POST /api/workflow/sessions
func (h *EvaluationHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.eval.CreateSession(c.Request.Context()))
}

// GET /api/workflow/sessions/:id
func (h *EvaluationHandler) GetSession(c *gin.Context) {
	snap, err := h.eval.Snapshot(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get_session_failed")
		return
	}
	response.RespondOK(c, snap)
}

// DELETE /api/workflow/sessions/:id
func (h *EvaluationHandler) CloseSession(c *gin.Context) {
	h.eval.CloseSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type selectReq struct {
	AssetID string `json:"assetId" binding:"required"`
}

// POST /api/workflow/sessions/:id/select
func (h *EvaluationHandler) Select(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	h.respond(c, "select_failed")(h.eval.Select(c.Request.Context(), c.Param("id"), req.AssetID))
}

// A generation failure still answers 200; the snapshot's error field carries it.
func (h *EvaluationHandler) respond(c *gin.Context, code string) func(workflow.Snapshot, error) {
	return func(snap workflow.Snapshot, err error) {
		if err != nil {
			respondServiceError(c, err, code)
			return
		}
		response.RespondOK(c, snap)
	}
}

// POST /api/workflow/sessions/:id/evaluate
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	h.respond(c, "evaluate_failed")(h.eval.Evaluate(c.Request.Context(), c.Param("id")))
}

// POST /api/workflow/sessions/:id/optimize
func (h *EvaluationHandler) Optimize(c *gin.Context) {
	h.respond(c, "optimize_failed")(h.eval.Optimize(c.Request.Context(), c.Param("id")))
}

// POST /api/workflow/sessions/:id/save
func (h *EvaluationHandler) Save(c *gin.Context) {
	h.respond(c, "save_failed")(h.eval.SaveChanges(c.Request.Context(), c.Param("id")))
}

// POST /api/workflow/sessions/:id/discard
func (h *EvaluationHandler) Discard(c *gin.Context) {
	h.respond(c, "discard_failed")(h.eval.DiscardChanges(c.Request.Context(), c.Param("id")))
}

// POST /api/workflow/sessions/:id/save-report
func (h *EvaluationHandler) SaveReport(c *gin.Context) {
	h.respond(c, "save_report_failed")(h.eval.SaveReport(c.Request.Context(), c.Param("id")))
}

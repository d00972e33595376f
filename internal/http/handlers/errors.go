package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/platform/apierr"
	"github.com/yungbote/eduplanner-backend/internal/services"
	"github.com/yungbote/eduplanner-backend/internal/workflow"
)

var errorTable = []struct {
	target error
	status int
	code   string
}{
	{services.ErrBusy, http.StatusConflict, "busy"},
	{workflow.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{workflow.ErrNoAsset, http.StatusConflict, "no_asset_selected"},
	{services.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{services.ErrMessageNotFound, http.StatusNotFound, "message_not_found"},
	{services.ErrPlanNotFound, http.StatusNotFound, "lesson_plan_not_found"},
	{services.ErrAssetNotFound, http.StatusNotFound, "asset_not_found"},
	{services.ErrStudentNotFound, http.StatusNotFound, "student_not_found"},
	{services.ErrHandoffNotFound, http.StatusNotFound, "handoff_not_found"},
	{services.ErrEmptyPrompt, http.StatusBadRequest, "empty_prompt"},
	{services.ErrNotAgentMessage, http.StatusBadRequest, "not_agent_message"},
	{services.ErrInvalidRating, http.StatusBadRequest, "invalid_rating"},
	{services.ErrNoActivePlan, http.StatusConflict, "no_active_plan"},
	{services.ErrNotEvaluatorReply, http.StatusBadRequest, "not_evaluator_reply"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{services.ErrInvalidLevel, http.StatusBadRequest, "invalid_level"},
	{services.ErrInvalidAnalysis, http.StatusBadRequest, "invalid_analysis"},
	{services.ErrInvalidWorkbook, http.StatusBadRequest, "invalid_workbook"},
	{services.ErrEmptyRoster, http.StatusUnprocessableEntity, "empty_roster"},
	{services.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},
}

// toAPIError classifies a service error; unknown errors become 500 with fallbackCode.
func toAPIError(err error, fallbackCode string) *apierr.Error {
	if ae := apierr.As(err); ae != nil {
		return ae
	}
	var ge *services.GenerationError
	if errors.As(err, &ge) {
		return apierr.Upstream("generation_failed", ge)
	}
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return apierr.New(e.status, e.code, err)
		}
	}
	return apierr.New(http.StatusInternalServerError, fallbackCode, err)
}

func respondServiceError(c *gin.Context, err error, fallbackCode string) {
	ae := toAPIError(err, fallbackCode)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.RespondError(c, ae.Status, ae.Code, ae)
}

func badRequest(c *gin.Context, code string, err error) {
	response.RespondError(c, http.StatusBadRequest, code, err)
}

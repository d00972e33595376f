package services

import (
	"errors"

	"github.com/yungbote/eduplanner-backend/internal/workflow"
)

var (
	// ErrBusy is shared with the workflow so handlers map both to one response.
	ErrBusy = workflow.ErrBusy

	ErrSessionNotFound   = errors.New("session not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrNotAgentMessage   = errors.New("only agent messages can be rated")
	ErrInvalidRating     = errors.New("rating must be up or down")
	ErrNoActivePlan      = errors.New("no active lesson plan to refine")
	ErrNotEvaluatorReply = errors.New("optimizer can only act on evaluator messages")
	ErrPlanNotFound      = errors.New("lesson plan not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrHandoffNotFound   = errors.New("handoff token not found or already used")
	ErrInvalidStatus     = errors.New("invalid student status")
	ErrInvalidLevel      = errors.New("invalid alert level")
	ErrInvalidAnalysis   = errors.New("invalid analysis kind")
	ErrInvalidWorkbook   = errors.New("invalid roster workbook")
	ErrEmptyRoster       = errors.New("roster workbook has no valid rows")
	ErrInvalidFilter     = errors.New("invalid asset filter")
)

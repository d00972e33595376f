package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/http/response"
	"github.com/yungbote/eduplanner-backend/internal/services"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxRosterUpload = 8 << 20
)

type DashboardHandler struct {
	dash services.DashboardService
}

func NewDashboardHandler(dash services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dash: dash}
}

func studentID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_student_id", err)
		return 0, false
	}
	return id, true
}

// GET /api/students?status=Struggling
func (h *DashboardHandler) ListStudents(c *gin.Context) {
	students, err := h.dash.Students(c.Request.Context(), roster.StudentStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err, "list_students_failed")
		return
	}
	response.RespondOK(c, gin.H{"students": students})
}

// GET /api/students/:id
func (h *DashboardHandler) GetStudent(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	st, err := h.dash.Student(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get_student_failed")
		return
	}
	response.RespondOK(c, gin.H{"student": st})
}

// POST /api/students/:id/analysis/:kind
func (h *DashboardHandler) AnalyzeStudent(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	out, err := h.dash.AnalyzeStudent(c.Request.Context(), id, services.AnalysisKind(c.Param("kind")))
	if err != nil {
		respondServiceError(c, err, "analysis_failed")
		return
	}
	response.RespondOK(c, out)
}

// GET /api/alerts?level=critical
func (h *DashboardHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.dash.Alerts(c.Request.Context(), roster.AlertLevel(c.Query("level")))
	if err != nil {
		respondServiceError(c, err, "list_alerts_failed")
		return
	}
	response.RespondOK(c, gin.H{"alerts": alerts})
}

// GET /api/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	sum, err := h.dash.Summary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "summary_failed")
		return
	}
	response.RespondOK(c, sum)
}

// GET /api/trends
func (h *DashboardHandler) Trends(c *gin.Context) {
	response.RespondOK(c, gin.H{"trends": h.dash.ActivityTrends()})
}

// GET /api/topics
func (h *DashboardHandler) Topics(c *gin.Context) {
	response.RespondOK(c, gin.H{"topics": h.dash.AssignmentTopics()})
}

type commonErrorsReq struct {
	Topic string `json:"topic" binding:"required"`
}

// POST /api/topics/common-errors
func (h *DashboardHandler) CommonErrors(c *gin.Context) {
	var req commonErrorsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	text, err := h.dash.CommonErrors(c.Request.Context(), req.Topic)
	if err != nil {
		respondServiceError(c, err, "common_errors_failed")
		return
	}
	response.RespondOK(c, gin.H{"topic": req.Topic, "text": text})
}

// POST /api/observatory
func (h *DashboardHandler) Observatory(c *gin.Context) {
	text, err := h.dash.Observatory(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "observatory_failed")
		return
	}
	response.RespondOK(c, gin.H{"text": text})
}

// GET /api/feedback/analysis
func (h *DashboardHandler) FeedbackAnalysis(c *gin.Context) {
	summary, err := h.dash.FeedbackAnalysis(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "feedback_analysis_failed")
		return
	}
	response.RespondOK(c, gin.H{"agents": summary})
}

// GET /api/feedback/analysis.xlsx
func (h *DashboardHandler) FeedbackWorkbook(c *gin.Context) {
	body, err := h.dash.FeedbackWorkbook(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "feedback_export_failed")
		return
	}
	name := "agent-feedback-" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, body)
}

// POST /api/roster/import (multipart field "file")
func (h *DashboardHandler) ImportRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing_file", err)
		return
	}
	if fh.Size > maxRosterUpload {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errors.New("roster workbook exceeds 8MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "missing_file", err)
		return
	}
	defer f.Close()
	res, err := h.dash.ImportRoster(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err, "roster_import_failed")
		return
	}
	response.RespondOK(c, res)
}

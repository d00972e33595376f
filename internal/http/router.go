package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/eduplanner-backend/internal/http/handlers"
	httpMW "github.com/yungbote/eduplanner-backend/internal/http/middleware"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	RealtimeHandler   *httpH.RealtimeHandler
	DashboardHandler  *httpH.DashboardHandler
	EvaluationHandler *httpH.EvaluationHandler
	LessonLabHandler  *httpH.LessonLabHandler
	ChatHandler       *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if h := cfg.RealtimeHandler; h != nil {
		api.GET("/events", h.SSEStream)
		api.POST("/events/subscribe", h.SSESubscribe)
		api.POST("/events/unsubscribe", h.SSEUnsubscribe)
	}

	// Dashboard
	if h := cfg.DashboardHandler; h != nil {
		api.GET("/students", h.ListStudents)
		api.GET("/students/:id", h.GetStudent)
		api.POST("/students/:id/analysis/:kind", h.AnalyzeStudent)
		api.GET("/alerts", h.ListAlerts)
		api.GET("/summary", h.Summary)
		api.GET("/trends", h.Trends)
		api.GET("/topics", h.Topics)
		api.POST("/topics/common-errors", h.CommonErrors)
		api.POST("/observatory", h.Observatory)
		api.GET("/feedback/analysis", h.FeedbackAnalysis)
		api.GET("/feedback/analysis.xlsx", h.FeedbackWorkbook)
		api.POST("/roster/import", h.ImportRoster)
	}

	// Evaluation workflow
	if h := cfg.EvaluationHandler; h != nil {
		api.GET("/assets", h.ListAssets)
		api.GET("/assets/:id", h.GetAsset)
		api.POST("/workflow/sessions", h.CreateSession)
		api.GET("/workflow/sessions/:id", h.GetSession)
		api.DELETE("/workflow/sessions/:id", h.CloseSession)
		api.POST("/workflow/sessions/:id/select", h.Select)
		api.POST("/workflow/sessions/:id/evaluate", h.Evaluate)
		api.POST("/workflow/sessions/:id/optimize", h.Optimize)
		api.POST("/workflow/sessions/:id/save", h.Save)
		api.POST("/workflow/sessions/:id/discard", h.Discard)
		api.POST("/workflow/sessions/:id/save-report", h.SaveReport)
	}

	// Lesson lab
	if h := cfg.LessonLabHandler; h != nil {
		api.POST("/lesson-plans", h.Generate)
		api.GET("/lesson-plans", h.List)
		api.GET("/lesson-plans/:id", h.Get)
		api.POST("/lesson-plans/:id/refine", h.Refine)
		api.GET("/lesson-plans/:id/notes", h.LoadNotes)
		api.PUT("/lesson-plans/:id/notes", h.SaveNotes)
		api.POST("/lesson-plans/:id/notes/flush", h.FlushNotes)
		api.GET("/lesson-plans/:id/export", h.Export)
		api.POST("/lesson-plans/:id/export", h.Export)
		api.GET("/handoffs/:token", h.TakeHandoff)
	}

	// Agent chat
	if h := cfg.ChatHandler; h != nil {
		api.POST("/chat/sessions", h.CreateSession)
		api.GET("/chat/sessions/:id", h.GetSession)
		api.DELETE("/chat/sessions/:id", h.CloseSession)
		api.POST("/chat/sessions/:id/messages", h.Submit)
		api.POST("/chat/sessions/:id/messages/:messageId/feedback", h.SubmitFeedback)
		api.POST("/chat/sessions/:id/messages/:messageId/optimize", h.OptimizerAction)
		api.POST("/lesson-plans/:id/review", h.ReviewLessonPlan)
	}

	return r
}

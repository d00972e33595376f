package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/http"
	httpH "github.com/yungbote/eduplanner-backend/internal/http/handlers"
	httpMW "github.com/yungbote/eduplanner-backend/internal/http/middleware"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

const serviceName = "eduplanner"

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Realtime   *httpH.RealtimeHandler
	Dashboard  *httpH.DashboardHandler
	Evaluation *httpH.EvaluationHandler
	LessonLab  *httpH.LessonLabHandler
	Chat       *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Realtime:   httpH.NewRealtimeHandler(log, sseHub),
		Dashboard:  httpH.NewDashboardHandler(services.Dashboard),
		Evaluation: httpH.NewEvaluationHandler(services.Evaluation),
		LessonLab:  httpH.NewLessonLabHandler(services.LessonLab),
		Chat:       httpH.NewChatHandler(services.Chat, services.LessonLab),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	auth := httpMW.NewAuthMiddleware(log, cfg.AuthJWTSecret)
	if !auth.Enabled() {
		log.Warn("AUTH_JWT_SECRET not set; API routes are open")
	}
	return Middleware{Auth: auth}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) http.RouterConfig {
	return http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		CORSOrigins:       cfg.CORSOrigins,
		ServiceName:       serviceName,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		RealtimeHandler:   handlers.Realtime,
		DashboardHandler:  handlers.Dashboard,
		EvaluationHandler: handlers.Evaluation,
		LessonLabHandler:  handlers.LessonLab,
		ChatHandler:       handlers.Chat,
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(routerConfig(log, cfg, metrics, handlers, middleware))
}

func newServer(engine *gin.Engine) *http.Server {
	return &http.Server{Engine: engine}
}

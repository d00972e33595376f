package app

import (
	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/data/seed"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
	"github.com/yungbote/eduplanner-backend/internal/services"
)

type Services struct {
	Feedback   services.FeedbackLog
	Generation services.GenerationService
	Dashboard  services.DashboardService
	Evaluation services.EvaluationService
	LessonLab  services.LessonLabService
	Chat       services.ChatService
}

func wireServices(
	log *logger.Logger,
	cfg Config,
	r *repos.Repos,
	clients Clients,
	course *seed.Data,
	notify realtime.Notifier,
) Services {
	log.Info("Wiring services...")

	feedback := services.NewFeedbackLog(log, clients.Store)
	gen := services.NewGenerationService(log, clients.Gemini, clients.Personas, feedback)
	lab := services.NewLessonLabService(log, gen, r.LessonPlans, clients.Store, clients.Archive, notify, services.LessonLabConfig{
		HandoffTTL: cfg.HandoffTTL,
		NotesQuiet: cfg.NotesQuiet,
	})

	return Services{
		Feedback:   feedback,
		Generation: gen,
		Dashboard:  services.NewDashboardService(log, r, gen, feedback, course),
		Evaluation: services.NewEvaluationService(log, r.Assets, gen, notify),
		LessonLab:  lab,
		Chat:       services.NewChatService(log, gen, feedback, lab, clients.Personas, notify),
	}
}

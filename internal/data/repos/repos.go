package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/data/repos/planning"
	"github.com/yungbote/eduplanner-backend/internal/data/repos/roster"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type StudentRepo = roster.StudentRepo
type AlertRepo = roster.AlertRepo

type AssetRepo = planning.AssetRepo
type LessonPlanRepo = planning.LessonPlanRepo

type Repos struct {
	Students    StudentRepo
	Alerts      AlertRepo
	Assets      AssetRepo
	LessonPlans LessonPlanRepo
}

func New(db *gorm.DB, log *logger.Logger) *Repos {
	return &Repos{
		Students:    roster.NewStudentRepo(db, log),
		Alerts:      roster.NewAlertRepo(db, log),
		Assets:      planning.NewAssetRepo(db, log),
		LessonPlans: planning.NewLessonPlanRepo(db, log),
	}
}

package planning

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type LessonPlanRepo interface {
	// Save inserts or fully replaces a plan.
	Save(dbc dbctx.Context, plan *planning.LessonPlan) error
	GetByID(dbc dbctx.Context, id string) (*planning.LessonPlan, error)
	List(dbc dbctx.Context, limit int) ([]*planning.LessonPlan, error)
	UpdateNotes(dbc dbctx.Context, id string, notes string) error
}

type lessonPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonPlanRepo(db *gorm.DB, baseLog *logger.Logger) LessonPlanRepo {
	return &lessonPlanRepo{db: db, log: baseLog.With("repo", "LessonPlanRepo")}
}

func (r *lessonPlanRepo) Save(dbc dbctx.Context, plan *planning.LessonPlan) error {
	if plan == nil || plan.ID == "" {
		return errors.New("save lesson plan: missing id")
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "learning_objectives", "difficulty", "lesson_structure",
			"examples", "assessment_questions", "professor_notes", "updated_at",
		}),
	}).Create(plan).Error
}

// GetByID returns (nil, nil) when the plan does not exist.
func (r *lessonPlanRepo) GetByID(dbc dbctx.Context, id string) (*planning.LessonPlan, error) {
	var p planning.LessonPlan
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *lessonPlanRepo) List(dbc dbctx.Context, limit int) ([]*planning.LessonPlan, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*planning.LessonPlan
	if err := dbc.DB(r.db).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonPlanRepo) UpdateNotes(dbc dbctx.Context, id string, notes string) error {
	res := dbc.DB(r.db).Model(&planning.LessonPlan{}).Where("id = ?", id).Update("professor_notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

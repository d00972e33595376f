package roster

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type StudentRepo interface {
	List(dbc dbctx.Context) ([]*roster.Student, error)
	GetByID(dbc dbctx.Context, id int) (*roster.Student, error)
	ListByStatus(dbc dbctx.Context, status roster.StudentStatus) ([]*roster.Student, error)
	Upsert(dbc dbctx.Context, students []*roster.Student) error
	// ReplaceAll swaps the whole roster inside one transaction.
	ReplaceAll(dbc dbctx.Context, students []*roster.Student) error
	Count(dbc dbctx.Context) (int64, error)
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{db: db, log: baseLog.With("repo", "StudentRepo")}
}

func (r *studentRepo) List(dbc dbctx.Context) ([]*roster.Student, error) {
	var out []*roster.Student
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns (nil, nil) when the student does not exist.
func (r *studentRepo) GetByID(dbc dbctx.Context, id int) (*roster.Student, error) {
	var st roster.Student
	err := dbc.DB(r.db).Where("id = ?", id).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *studentRepo) ListByStatus(dbc dbctx.Context, status roster.StudentStatus) ([]*roster.Student, error) {
	var out []*roster.Student
	if err := dbc.DB(r.db).Where("status = ?", status).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) Upsert(dbc dbctx.Context, students []*roster.Student) error {
	if len(students) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&students).Error
}

func (r *studentRepo) ReplaceAll(dbc dbctx.Context, students []*roster.Student) error {
	run := func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&roster.Student{}).Error; err != nil {
			return err
		}
		if len(students) == 0 {
			return nil
		}
		return tx.Create(&students).Error
	}
	if dbc.Tx != nil {
		return run(dbc.DB(r.db))
	}
	return dbc.DB(r.db).Transaction(run)
}

func (r *studentRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&roster.Student{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

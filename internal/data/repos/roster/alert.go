package roster

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type AlertRepo interface {
	List(dbc dbctx.Context) ([]*roster.Alert, error)
	ListByLevel(dbc dbctx.Context, level roster.AlertLevel) ([]*roster.Alert, error)
	Upsert(dbc dbctx.Context, alerts []*roster.Alert) error
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{db: db, log: baseLog.With("repo", "AlertRepo")}
}

func (r *alertRepo) List(dbc dbctx.Context) ([]*roster.Alert, error) {
	var out []*roster.Alert
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *alertRepo) ListByLevel(dbc dbctx.Context, level roster.AlertLevel) ([]*roster.Alert, error) {
	var out []*roster.Alert
	if err := dbc.DB(r.db).Where("level = ?", level).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *alertRepo) Upsert(dbc dbctx.Context, alerts []*roster.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&alerts).Error
}

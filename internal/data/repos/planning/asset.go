package planning

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type AssetRepo interface {
	List(dbc dbctx.Context, filter planning.AssetFilter) ([]*planning.EvaluableAsset, error)
	GetByID(dbc dbctx.Context, id string) (*planning.EvaluableAsset, error)
	// Save writes content, question count, evaluation stamp and saved report.
	Save(dbc dbctx.Context, asset *planning.EvaluableAsset) error
	Upsert(dbc dbctx.Context, assets []*planning.EvaluableAsset) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) List(dbc dbctx.Context, filter planning.AssetFilter) ([]*planning.EvaluableAsset, error) {
	q := dbc.DB(r.db).Order("id ASC")
	switch filter {
	case "", planning.FilterAll:
	default:
		q = q.Where("type = ?", string(filter))
	}
	var out []*planning.EvaluableAsset
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns (nil, nil) when the asset does not exist.
func (r *assetRepo) GetByID(dbc dbctx.Context, id string) (*planning.EvaluableAsset, error) {
	var a planning.EvaluableAsset
	err := dbc.DB(r.db).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assetRepo) Save(dbc dbctx.Context, asset *planning.EvaluableAsset) error {
	if asset == nil || asset.ID == "" {
		return errors.New("save asset: missing id")
	}
	res := dbc.DB(r.db).Model(&planning.EvaluableAsset{}).
		Where("id = ?", asset.ID).
		Updates(map[string]any{
			"content":        asset.Content,
			"question_count": asset.QuestionCount,
			"last_evaluated": asset.LastEvaluated,
			"saved_report":   asset.SavedReport,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assetRepo) Upsert(dbc dbctx.Context, assets []*planning.EvaluableAsset) error {
	if len(assets) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&assets).Error
}

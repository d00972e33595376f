package seed

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// Apply writes the demo course when the roster is empty, or unconditionally with force.
// Rows are upserted by id, so a forced reseed overwrites edited assets.
func Apply(ctx context.Context, log *logger.Logger, db *gorm.DB, r *repos.Repos, data *Data, force bool) error {
	if data == nil {
		return nil
	}
	dbc := dbctx.New(ctx)
	if !force {
		n, err := r.Students.Count(dbc)
		if err != nil {
			return fmt.Errorf("seed: count students: %w", err)
		}
		if n > 0 {
			log.Debug("Seed skipped; roster already present", "students", n)
			return nil
		}
	}
	start := time.Now()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := r.Alerts.Upsert(txc, data.Alerts); err != nil {
			return fmt.Errorf("alerts: %w", err)
		}
		if err := r.Students.Upsert(txc, data.Students); err != nil {
			return fmt.Errorf("students: %w", err)
		}
		if err := r.Assets.Upsert(txc, data.Assets); err != nil {
			return fmt.Errorf("assets: %w", err)
		}
		if data.LessonPlan != nil {
			if err := r.LessonPlans.Save(txc, data.LessonPlan); err != nil {
				return fmt.Errorf("lesson plan: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info("Seed data applied",
		"students", len(data.Students),
		"alerts", len(data.Alerts),
		"assets", len(data.Assets),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

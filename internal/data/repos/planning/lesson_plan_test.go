package planning

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/eduplanner-backend/internal/data/repos/testutil"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
)

func TestLessonPlanRepoSaveReplaces(t *testing.T) {
	repo := NewLessonPlanRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	plan := &planning.LessonPlan{
		ID:                 "lp-1",
		Title:              "Heaps",
		Difficulty:         planning.DifficultyBeginner,
		LearningObjectives: datatypes.JSONSlice[string]{"Define a heap"},
		LessonStructure:    datatypes.JSONSlice[planning.LessonSection]{{SectionTitle: "Intro", Content: "...", EstimatedTime: "5 minutes"}},
	}
	if err := repo.Save(dbc, plan); err != nil {
		t.Fatalf("Save: %v", err)
	}
	refined := *plan
	refined.Title = "Heaps, refined"
	refined.LearningObjectives = datatypes.JSONSlice[string]{"Define a heap", "Implement sift-down"}
	if err := repo.Save(dbc, &refined); err != nil {
		t.Fatalf("Save refined: %v", err)
	}

	got, err := repo.GetByID(dbc, "lp-1")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Title != "Heaps, refined" || len(got.LearningObjectives) != 2 {
		t.Fatalf("plan not replaced: %+v", got)
	}

	if err := repo.UpdateNotes(dbc, "lp-1", "use the array view"); err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	got, _ = repo.GetByID(dbc, "lp-1")
	if got.ProfessorNotes != "use the array view" {
		t.Fatalf("notes=%q", got.ProfessorNotes)
	}

	list, err := repo.List(dbc, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %v", list, err)
	}
}

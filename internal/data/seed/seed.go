package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
)

//go:embed seed.yaml
var defaultSeed []byte

type studentDoc struct {
	roster.Student `yaml:",inline"`
	AlertIDs       []string `yaml:"alert_ids"`
}

type assetDoc struct {
	ID                   string              `yaml:"id"`
	Title                string              `yaml:"title"`
	Type                 planning.AssetType  `yaml:"type"`
	LastEvaluatedDaysAgo *int                `yaml:"last_evaluated_days_ago"`
	Questions            []planning.Question `yaml:"questions"`
}

type sectionDoc struct {
	SectionTitle  string `yaml:"section_title"`
	Content       string `yaml:"content"`
	EstimatedTime string `yaml:"estimated_time"`
}

type exampleDoc struct {
	ExampleTitle string `yaml:"example_title"`
	Description  string `yaml:"description"`
	Code         string `yaml:"code"`
}

type lessonPlanDoc struct {
	ID                  string                        `yaml:"id"`
	Title               string                        `yaml:"title"`
	Difficulty          planning.Difficulty           `yaml:"difficulty"`
	LearningObjectives  []string                      `yaml:"learning_objectives"`
	LessonStructure     []sectionDoc                  `yaml:"lesson_structure"`
	Examples            []exampleDoc                  `yaml:"examples"`
	AssessmentQuestions []planning.AssessmentQuestion `yaml:"assessment_questions"`
	ProfessorNotes      string                        `yaml:"professor_notes"`
}

type document struct {
	Alerts           []roster.Alert         `yaml:"alerts"`
	Students         []studentDoc           `yaml:"students"`
	ActivityTrends   []roster.ActivityTrend `yaml:"activity_trends"`
	AssignmentTopics []string               `yaml:"assignment_topics"`
	Assets           []assetDoc             `yaml:"assets"`
	LessonPlan       lessonPlanDoc          `yaml:"lesson_plan"`
}

// Data is the decoded demo course.
type Data struct {
	Students         []*roster.Student
	Alerts           []*roster.Alert
	ActivityTrends   []roster.ActivityTrend
	AssignmentTopics []string
	Assets           []*planning.EvaluableAsset
	LessonPlan       *planning.LessonPlan
}

// Default decodes the embedded demo course. Relative evaluation ages are resolved against now.
func Default(now time.Time) (*Data, error) {
	return Parse(defaultSeed, now)
}

func Parse(raw []byte, now time.Time) (*Data, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	out := &Data{
		ActivityTrends:   doc.ActivityTrends,
		AssignmentTopics: doc.AssignmentTopics,
	}
	alertsByID := make(map[string]roster.Alert, len(doc.Alerts))
	for i := range doc.Alerts {
		a := doc.Alerts[i]
		if !a.Level.Valid() {
			return nil, fmt.Errorf("parse seed: alert %s has invalid level %q", a.ID, a.Level)
		}
		alertsByID[a.ID] = a
		out.Alerts = append(out.Alerts, &a)
	}

	seen := make(map[int]bool, len(doc.Students))
	for _, sd := range doc.Students {
		st := sd.Student
		if seen[st.ID] {
			return nil, fmt.Errorf("parse seed: duplicate student id %d", st.ID)
		}
		seen[st.ID] = true
		if !st.Status.Valid() {
			return nil, fmt.Errorf("parse seed: student %d has invalid status %q", st.ID, st.Status)
		}
		for _, id := range sd.AlertIDs {
			a, ok := alertsByID[id]
			if !ok {
				return nil, fmt.Errorf("parse seed: student %d references unknown alert %s", st.ID, id)
			}
			st.Alerts = append(st.Alerts, a)
		}
		out.Students = append(out.Students, &st)
	}

	for _, ad := range doc.Assets {
		a := &planning.EvaluableAsset{
			ID:            ad.ID,
			Title:         ad.Title,
			Type:          ad.Type,
			Content:       planning.AssetContent{Questions: ad.Questions},
			QuestionCount: len(ad.Questions),
		}
		if ad.LastEvaluatedDaysAgo != nil {
			t := now.Add(-time.Duration(*ad.LastEvaluatedDaysAgo) * 24 * time.Hour).UTC()
			a.LastEvaluated = &t
		}
		out.Assets = append(out.Assets, a)
	}

	lp := doc.LessonPlan
	plan := &planning.LessonPlan{
		ID:                  lp.ID,
		Title:               lp.Title,
		Difficulty:          lp.Difficulty,
		LearningObjectives:  datatypes.JSONSlice[string](lp.LearningObjectives),
		AssessmentQuestions: datatypes.JSONSlice[planning.AssessmentQuestion](lp.AssessmentQuestions),
		ProfessorNotes:      lp.ProfessorNotes,
	}
	for _, s := range lp.LessonStructure {
		plan.LessonStructure = append(plan.LessonStructure, planning.LessonSection{SectionTitle: s.SectionTitle, Content: s.Content, EstimatedTime: s.EstimatedTime})
	}
	for _, e := range lp.Examples {
		plan.Examples = append(plan.Examples, planning.LessonExample{ExampleTitle: e.ExampleTitle, Description: e.Description, Code: e.Code})
	}
	if plan.ID != "" {
		out.LessonPlan = plan
	}
	return out, nil
}

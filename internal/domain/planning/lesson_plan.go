package planning

import (
	"time"

	"gorm.io/datatypes"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

type LessonSection struct {
	SectionTitle  string `json:"sectionTitle" validate:"required"`
	Content       string `json:"content" validate:"required"`
	EstimatedTime string `json:"estimatedTime" validate:"required"`
}

type LessonExample struct {
	ExampleTitle string `json:"exampleTitle" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Code         string `json:"code,omitempty"`
}

type AssessmentQuestion struct {
	Question string   `json:"question" yaml:"question" validate:"required"`
	Type     string   `json:"type" yaml:"type" validate:"oneof='Multiple Choice' 'Short Answer' 'Coding Problem'"`
	Options  []string `json:"options,omitempty" yaml:"options"`
	Answer   string   `json:"answer" yaml:"answer" validate:"required"`
}

// LessonPlan field names follow the structured-output schema sent to the model,
// so a decoded response maps onto it directly.
type LessonPlan struct {
	ID                  string                                  `gorm:"primaryKey;type:text" json:"id"`
	Title               string                                  `gorm:"type:text;not null" json:"title" validate:"required"`
	LearningObjectives  datatypes.JSONSlice[string]             `json:"learningObjectives" validate:"required,min=1"`
	Difficulty          Difficulty                              `gorm:"type:text;not null" json:"difficulty" validate:"oneof=Beginner Intermediate Advanced"`
	LessonStructure     datatypes.JSONSlice[LessonSection]      `json:"lessonStructure" validate:"required,min=1,dive"`
	Examples            datatypes.JSONSlice[LessonExample]      `json:"examples" validate:"dive"`
	AssessmentQuestions datatypes.JSONSlice[AssessmentQuestion] `json:"assessmentQuestions" validate:"dive"`
	ProfessorNotes      string                                  `gorm:"type:text" json:"professorNotes"`
	CreatedAt           time.Time                               `json:"-"`
	UpdatedAt           time.Time                               `json:"-"`
}

func (LessonPlan) TableName() string { return "lesson_plan" }

// Clone returns a copy that shares no slices with p.
func (p *LessonPlan) Clone() *LessonPlan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.LearningObjectives = append(datatypes.JSONSlice[string](nil), p.LearningObjectives...)
	cp.LessonStructure = append(datatypes.JSONSlice[LessonSection](nil), p.LessonStructure...)
	cp.Examples = append(datatypes.JSONSlice[LessonExample](nil), p.Examples...)
	cp.AssessmentQuestions = make(datatypes.JSONSlice[AssessmentQuestion], len(p.AssessmentQuestions))
	for i, q := range p.AssessmentQuestions {
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		cp.AssessmentQuestions[i] = q
	}
	if p.AssessmentQuestions == nil {
		cp.AssessmentQuestions = nil
	}
	return &cp
}

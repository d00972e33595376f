package planning

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type AssetType string

const (
	AssetQuiz       AssetType = "Quiz"
	AssetAssignment AssetType = "Assignment"
)

type Question struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Text    string   `json:"text" yaml:"text" validate:"required"`
	Type    string   `json:"type" yaml:"type" validate:"oneof='Multiple Choice' 'Short Answer' Coding"`
	Options []string `json:"options,omitempty" yaml:"options"`
	Answer  string   `json:"answer,omitempty" yaml:"answer"`
}

type AssetContent struct {
	Questions []Question `json:"questions" validate:"required,dive"`
}

func (c AssetContent) Value() (driver.Value, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (c *AssetContent) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = AssetContent{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("asset content: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, c)
}

func (AssetContent) GormDataType() string { return "json" }

// Clone returns a deep copy so callers can hold an original while content is replaced.
func (c AssetContent) Clone() AssetContent {
	out := AssetContent{Questions: make([]Question, len(c.Questions))}
	for i, q := range c.Questions {
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		out.Questions[i] = q
	}
	return out
}

type EvaluableAsset struct {
	ID            string       `gorm:"primaryKey;type:text" json:"id"`
	Title         string       `gorm:"type:text;not null" json:"title"`
	Type          AssetType    `gorm:"type:text;not null;index" json:"type"`
	Content       AssetContent `json:"content"`
	QuestionCount int          `gorm:"not null" json:"questionCount"`
	LastEvaluated *time.Time   `json:"lastEvaluated,omitempty"`
	SavedReport   string       `gorm:"type:text" json:"savedReport,omitempty"`
	UpdatedAt     time.Time    `json:"-"`
}

func (EvaluableAsset) TableName() string { return "evaluable_asset" }

type AssetFilter string

const (
	FilterAll        AssetFilter = "All"
	FilterQuiz       AssetFilter = "Quiz"
	FilterAssignment AssetFilter = "Assignment"
)

func (f AssetFilter) Match(a *EvaluableAsset) bool {
	switch f {
	case "", FilterAll:
		return true
	default:
		return a != nil && string(a.Type) == string(f)
	}
}

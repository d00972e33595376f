package roster

type AlertLevel string

const (
	AlertCritical  AlertLevel = "Critical"
	AlertImportant AlertLevel = "Important"
	AlertInfo      AlertLevel = "Info"
)

type Alert struct {
	ID                     string     `gorm:"primaryKey;type:text" json:"id" yaml:"id"`
	Level                  AlertLevel `gorm:"type:text;not null" json:"level" yaml:"level"`
	Title                  string     `gorm:"type:text;not null" json:"title" yaml:"title"`
	Description            string     `gorm:"type:text" json:"description" yaml:"description"`
	Timestamp              string     `gorm:"type:text" json:"timestamp" yaml:"timestamp"`
	RelatedAssignmentTitle string     `gorm:"type:text" json:"relatedAssignmentTitle,omitempty" yaml:"related_assignment_title"`
}

func (Alert) TableName() string { return "alert" }

func (l AlertLevel) Valid() bool {
	switch l {
	case AlertCritical, AlertImportant, AlertInfo:
		return true
	}
	return false
}

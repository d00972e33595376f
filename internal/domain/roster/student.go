package roster

import (
	"time"

	"gorm.io/datatypes"
)

type StudentStatus string

const (
	StatusStruggling StudentStatus = "Struggling"
	StatusOnTrack    StudentStatus = "On Track"
	StatusExcelling  StudentStatus = "Excelling"
)

func (s StudentStatus) Valid() bool {
	switch s {
	case StatusStruggling, StatusOnTrack, StatusExcelling:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentSubmitted AssignmentStatus = "Submitted"
	AssignmentLate      AssignmentStatus = "Late"
	AssignmentPending   AssignmentStatus = "Pending"
)

type Activity struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	Type        string `json:"type" yaml:"type"` // quiz|lesson|assignment|visualization
}

type AssignmentScore struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Score int    `json:"score" yaml:"score"`
}

type Assignment struct {
	ID      string           `json:"id" yaml:"id"`
	Title   string           `json:"title" yaml:"title"`
	DueDate string           `json:"dueDate" yaml:"due_date"`
	Status  AssignmentStatus `json:"status" yaml:"status"`
}

// Student is read-only roster data: seeded at startup or replaced by a roster import.
type Student struct {
	ID           int                                  `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Name         string                               `gorm:"type:text;not null" json:"name" yaml:"name"`
	Status       StudentStatus                        `gorm:"type:text;not null;index" json:"status" yaml:"status"`
	Progress     int                                  `gorm:"not null" json:"progress" yaml:"progress"`
	AverageScore *int                                 `json:"averageScore,omitempty" yaml:"average_score"`
	LastActivity string                               `gorm:"type:text" json:"lastActivity,omitempty" yaml:"last_activity"`
	Activities   datatypes.JSONSlice[Activity]        `json:"activities,omitempty" yaml:"activities"`
	Scores       datatypes.JSONSlice[AssignmentScore] `json:"scores,omitempty" yaml:"scores"`
	Alerts       datatypes.JSONSlice[Alert]           `json:"alerts,omitempty" yaml:"alerts"`
	Assignments  datatypes.JSONSlice[Assignment]      `json:"assignments,omitempty" yaml:"assignments"`
	UpdatedAt    time.Time                            `json:"-" yaml:"-"`
}

func (Student) TableName() string { return "student" }

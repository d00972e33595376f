package roster

type ActivityTrend struct {
	Day         string `json:"day" yaml:"day"`
	Lessons     int    `json:"lessons" yaml:"lessons"`
	Quizzes     int    `json:"quizzes" yaml:"quizzes"`
	Assignments int    `json:"assignments" yaml:"assignments"`
}

type CourseSummary struct {
	StudentCount    int                   `json:"studentCount"`
	AverageProgress int                   `json:"averageProgress"`
	AverageScore    int                   `json:"averageScore"`
	ByStatus        map[StudentStatus]int `json:"byStatus"`
	Health          string                `json:"health"`
}

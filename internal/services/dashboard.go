package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/data/seed"
	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type AnalysisKind string

const (
	AnalysisFeedback       AnalysisKind = "feedback"
	AnalysisMisconceptions AnalysisKind = "misconceptions"
	AnalysisRemedial       AnalysisKind = "remedial"
)

func (k AnalysisKind) Valid() bool {
	switch k {
	case AnalysisFeedback, AnalysisMisconceptions, AnalysisRemedial:
		return true
	}
	return false
}

type StudentAnalysis struct {
	StudentID int          `json:"studentId"`
	Kind      AnalysisKind `json:"kind"`
	Text      string       `json:"text"`
}

const (
	HealthGood           = "Good"
	HealthNeedsAttention = "Needs Attention"
	HealthAtRisk         = "At Risk"
)

type DashboardService interface {
	// Students lists the roster, optionally narrowed to one status.
	Students(ctx context.Context, status roster.StudentStatus) ([]*roster.Student, error)
	Student(ctx context.Context, id int) (*roster.Student, error)
	Alerts(ctx context.Context, level roster.AlertLevel) ([]*roster.Alert, error)
	Summary(ctx context.Context) (*roster.CourseSummary, error)
	ActivityTrends() []roster.ActivityTrend
	AssignmentTopics() []string

	AnalyzeStudent(ctx context.Context, id int, kind AnalysisKind) (*StudentAnalysis, error)
	CommonErrors(ctx context.Context, topic string) (string, error)
	Observatory(ctx context.Context) (string, error)

	FeedbackAnalysis(ctx context.Context) ([]collab.AgentFeedbackSummary, error)
	FeedbackWorkbook(ctx context.Context) ([]byte, error)
	ImportRoster(ctx context.Context, r io.Reader) (*RosterImportResult, error)
}

type dashboardService struct {
	log      *logger.Logger
	repos    *repos.Repos
	gen      GenerationService
	feedback FeedbackLog
	course   *seed.Data
}

// NewDashboardService serves course data. Trends and topics come from course, which may be nil.
func NewDashboardService(log *logger.Logger, r *repos.Repos, gen GenerationService, feedback FeedbackLog, course *seed.Data) DashboardService {
	if course == nil {
		course = &seed.Data{}
	}
	return &dashboardService{
		log:      log.With("service", "DashboardService"),
		repos:    r,
		gen:      gen,
		feedback: feedback,
		course:   course,
	}
}

func (s *dashboardService) Students(ctx context.Context, status roster.StudentStatus) ([]*roster.Student, error) {
	dbc := dbctx.New(ctx)
	if status == "" {
		return s.repos.Students.List(dbc)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repos.Students.ListByStatus(dbc, status)
}

func (s *dashboardService) Student(ctx context.Context, id int) (*roster.Student, error) {
	st, err := s.repos.Students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

func (s *dashboardService) Alerts(ctx context.Context, level roster.AlertLevel) ([]*roster.Alert, error) {
	dbc := dbctx.New(ctx)
	if level == "" {
		return s.repos.Alerts.List(dbc)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	return s.repos.Alerts.ListByLevel(dbc, level)
}

func (s *dashboardService) Summary(ctx context.Context) (*roster.CourseSummary, error) {
	students, err := s.repos.Students.List(dbctx.New(ctx))
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return SummarizeCourse(students), nil
}

// SummarizeCourse averages are rounded to the nearest integer; students without a
// score are left out of the score average.
func SummarizeCourse(students []*roster.Student) *roster.CourseSummary {
	out := &roster.CourseSummary{
		ByStatus: map[roster.StudentStatus]int{
			roster.StatusStruggling: 0,
			roster.StatusOnTrack:    0,
			roster.StatusExcelling:  0,
		},
		Health: HealthGood,
	}
	var progress, scores, scored int
	for _, st := range students {
		if st == nil {
			continue
		}
		out.StudentCount++
		out.ByStatus[st.Status]++
		progress += st.Progress
		if st.AverageScore != nil {
			scores += *st.AverageScore
			scored++
		}
	}
	if out.StudentCount == 0 {
		return out
	}
	out.AverageProgress = roundDiv(progress, out.StudentCount)
	if scored > 0 {
		out.AverageScore = roundDiv(scores, scored)
	}
	struggling := out.ByStatus[roster.StatusStruggling] * 100 / out.StudentCount
	switch {
	case struggling >= 50:
		out.Health = HealthAtRisk
	case struggling >= 25:
		out.Health = HealthNeedsAttention
	}
	return out
}

func roundDiv(sum, n int) int {
	return (2*sum + n) / (2 * n)
}

func (s *dashboardService) ActivityTrends() []roster.ActivityTrend {
	return append([]roster.ActivityTrend(nil), s.course.ActivityTrends...)
}

func (s *dashboardService) AssignmentTopics() []string {
	return append([]string(nil), s.course.AssignmentTopics...)
}

func (s *dashboardService) AnalyzeStudent(ctx context.Context, id int, kind AnalysisKind) (*StudentAnalysis, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAnalysis, kind)
	}
	st, err := s.Student(ctx, id)
	if err != nil {
		return nil, err
	}
	var text string
	switch kind {
	case AnalysisFeedback:
		text, err = s.gen.StudentFeedback(ctx, st)
	case AnalysisMisconceptions:
		text, err = s.gen.StudentMisconceptions(ctx, st)
	case AnalysisRemedial:
		text, err = s.gen.RemedialWork(ctx, st)
	}
	if err != nil {
		return nil, err
	}
	return &StudentAnalysis{StudentID: st.ID, Kind: kind, Text: text}, nil
}

func (s *dashboardService) CommonErrors(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyPrompt
	}
	return s.gen.CommonErrors(ctx, topic)
}

func (s *dashboardService) Observatory(ctx context.Context) (string, error) {
	students, err := s.repos.Students.List(dbctx.New(ctx))
	if err != nil {
		return "", fmt.Errorf("load roster: %w", err)
	}
	return s.gen.ObservatoryInsights(ctx, students)
}

func (s *dashboardService) FeedbackAnalysis(ctx context.Context) ([]collab.AgentFeedbackSummary, error) {
	return s.feedback.Summary(ctx)
}

func (s *dashboardService) FeedbackWorkbook(ctx context.Context) ([]byte, error) {
	entries, err := s.feedback.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return FeedbackWorkbook(SummarizeFeedback(entries), entries)
}

func (s *dashboardService) ImportRoster(ctx context.Context, r io.Reader) (*RosterImportResult, error) {
	res, err := ParseRosterWorkbook(r)
	if err != nil {
		return nil, err
	}
	if len(res.Students) == 0 {
		return nil, ErrEmptyRoster
	}
	if err := s.repos.Students.ReplaceAll(dbctx.New(ctx), res.Students); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}
	res.Imported = len(res.Students)
	s.log.Info("Roster imported", "imported", res.Imported, "skipped", len(res.Skipped))
	return res, nil
}

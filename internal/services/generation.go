package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

const (
	msgInvalidKey       = "The configured API key is invalid. Please check your environment configuration."
	msgClientDisabled   = "The generation client is not initialized. Please configure your API key."
	msgAgentFailed      = "An error occurred while communicating with the AI agent. Please try again later."
	msgGenerateFailed   = "Failed to generate lesson plan. The AI agent may have returned an invalid format."
	msgRefineFailed     = "Failed to refine lesson plan. The AI agent may have returned an invalid format."
	msgEvaluateFailed   = "Failed to get evaluation from the AI agent."
	msgOptimizeFailed   = "Failed to generate optimized content. The AI agent may have returned an invalid format."
	msgObservatoryFails = "An error occurred while communicating with the AI agent."

	// Returned without a model call when the feedback log is empty.
	NoFeedbackReply = "I have reviewed the feedback logs, but there is no feedback currently recorded. Please continue to rate my colleagues' responses to help me improve their performance."
)

// GenerationError is what instructors see when a generation call fails. Err keeps the cause.
type GenerationError struct {
	Op      string
	Message string
	Err     error
}

func (e *GenerationError) Error() string { return e.Message }
func (e *GenerationError) Unwrap() error { return e.Err }

type LessonPlanRequest struct {
	Topic      string `json:"topic" binding:"required"`
	Objectives string `json:"objectives" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required,oneof=Beginner Intermediate Advanced"`
}

type GenerationService interface {
	AgentResponse(ctx context.Context, prompt string, agent collab.AgentName) (string, error)
	GenerateLessonPlan(ctx context.Context, req LessonPlanRequest) (*planning.LessonPlan, error)
	// RefineLessonPlan keeps the plan's id and professor notes.
	RefineLessonPlan(ctx context.Context, plan *planning.LessonPlan, feedback string) (*planning.LessonPlan, error)
	EvaluateAsset(ctx context.Context, asset *planning.EvaluableAsset) (string, error)
	OptimizeAsset(ctx context.Context, asset *planning.EvaluableAsset, report string) (*planning.AssetContent, error)
	ObservatoryInsights(ctx context.Context, students []*roster.Student) (string, error)
	StudentFeedback(ctx context.Context, student *roster.Student) (string, error)
	StudentMisconceptions(ctx context.Context, student *roster.Student) (string, error)
	RemedialWork(ctx context.Context, student *roster.Student) (string, error)
	CommonErrors(ctx context.Context, topic string) (string, error)
}

type generationService struct {
	log      *logger.Logger
	client   gemini.Client
	personas *agents.Personas
	feedback FeedbackLog
	now      func() time.Time

	idMu   sync.Mutex
	lastID int64
}

func NewGenerationService(log *logger.Logger, client gemini.Client, personas *agents.Personas, feedback FeedbackLog) GenerationService {
	return &generationService{
		log:      log.With("service", "GenerationService"),
		client:   client,
		personas: personas,
		feedback: feedback,
		now:      time.Now,
	}
}

func (s *generationService) fail(op, generic string, err error) error {
	msg := generic
	switch {
	case errors.Is(err, gemini.ErrInvalidCredential):
		msg = msgInvalidKey
	case errors.Is(err, gemini.ErrClientDisabled):
		msg = msgClientDisabled
	}
	s.log.Error("Generation failed", "op", op, "error", err)
	return &GenerationError{Op: op, Message: msg, Err: err}
}

func (s *generationService) text(ctx context.Context, op string, agent collab.AgentName, prompt, generic string) (string, error) {
	out, err := s.client.GenerateText(ctx, s.personas.SystemInstruction(agent), prompt)
	if err != nil {
		return "", s.fail(op, generic, err)
	}
	return out, nil
}

func (s *generationService) AgentResponse(ctx context.Context, prompt string, agent collab.AgentName) (string, error) {
	full := prompt
	if agent == collab.AgentAnalyst && agents.IsFeedbackReview(prompt) {
		entries, err := s.feedback.Entries(ctx)
		if err != nil {
			return "", s.fail("agent_response", msgAgentFailed, err)
		}
		if len(entries) == 0 {
			return NoFeedbackReply, nil
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return "", s.fail("agent_response", msgAgentFailed, err)
		}
		full = feedbackReviewPrompt(string(raw))
	}
	return s.text(ctx, "agent_response", agent, full, msgAgentFailed)
}

// nextPlanID returns lp-<unix millis>, bumped when two plans land in the same millisecond.
func (s *generationService) nextPlanID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return fmt.Sprintf("lp-%d", ms)
}

func (s *generationService) GenerateLessonPlan(ctx context.Context, req LessonPlanRequest) (*planning.LessonPlan, error) {
	var plan planning.LessonPlan
	prompt := generateLessonPlanPrompt(req.Topic, req.Objectives, req.Difficulty)
	if err := s.client.GenerateJSON(ctx, s.personas.SystemInstruction(collab.AgentOptimizer), prompt, lessonPlanSchema, &plan); err != nil {
		return nil, s.fail("generate_lesson_plan", msgGenerateFailed, err)
	}
	plan.ID = s.nextPlanID()
	plan.ProfessorNotes = ""
	return &plan, nil
}

func (s *generationService) RefineLessonPlan(ctx context.Context, plan *planning.LessonPlan, feedback string) (*planning.LessonPlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("refine lesson plan: nil plan")
	}
	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, err
	}
	var refined planning.LessonPlan
	prompt := refineLessonPlanPrompt(string(raw), feedback)
	if err := s.client.GenerateJSON(ctx, s.personas.SystemInstruction(collab.AgentOptimizer), prompt, lessonPlanSchema, &refined); err != nil {
		return nil, s.fail("refine_lesson_plan", msgRefineFailed, err)
	}
	refined.ID = plan.ID
	refined.ProfessorNotes = plan.ProfessorNotes
	return &refined, nil
}

func (s *generationService) EvaluateAsset(ctx context.Context, asset *planning.EvaluableAsset) (string, error) {
	if asset == nil {
		return "", fmt.Errorf("evaluate asset: nil asset")
	}
	raw, err := json.MarshalIndent(asset.Content, "", "  ")
	if err != nil {
		return "", err
	}
	return s.text(ctx, "evaluate_asset", collab.AgentEvaluator, evaluateAssetPrompt(asset, string(raw)), msgEvaluateFailed)
}

func (s *generationService) OptimizeAsset(ctx context.Context, asset *planning.EvaluableAsset, report string) (*planning.AssetContent, error) {
	if asset == nil {
		return nil, fmt.Errorf("optimize asset: nil asset")
	}
	raw, err := json.MarshalIndent(asset.Content, "", "  ")
	if err != nil {
		return nil, err
	}
	var content planning.AssetContent
	prompt := optimizeAssetPrompt(asset, string(raw), report)
	if err := s.client.GenerateJSON(ctx, s.personas.SystemInstruction(collab.AgentOptimizer), prompt, assetContentSchema, &content); err != nil {
		return nil, s.fail("optimize_asset", msgOptimizeFailed, err)
	}
	return &content, nil
}

type observatoryPoint struct {
	ID           int                  `json:"id"`
	Status       roster.StudentStatus `json:"status"`
	Progress     int                  `json:"progress"`
	AverageScore *int                 `json:"averageScore,omitempty"`
}

func (s *generationService) ObservatoryInsights(ctx context.Context, students []*roster.Student) (string, error) {
	points := make([]observatoryPoint, 0, len(students))
	for _, st := range students {
		if st == nil {
			continue
		}
		points = append(points, observatoryPoint{ID: st.ID, Status: st.Status, Progress: st.Progress, AverageScore: st.AverageScore})
	}
	raw, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return "", err
	}
	return s.text(ctx, "observatory_insights", collab.AgentAnalyst, observatoryPrompt(string(raw)), msgObservatoryFails)
}

func (s *generationService) StudentFeedback(ctx context.Context, student *roster.Student) (string, error) {
	if student == nil {
		return "", fmt.Errorf("student feedback: nil student")
	}
	return s.text(ctx, "student_feedback", collab.AgentAnalyst, studentFeedbackPrompt(student), msgAgentFailed)
}

func (s *generationService) StudentMisconceptions(ctx context.Context, student *roster.Student) (string, error) {
	if student == nil {
		return "", fmt.Errorf("student misconceptions: nil student")
	}
	return s.text(ctx, "student_misconceptions", collab.AgentAnalyst, misconceptionsPrompt(student), msgAgentFailed)
}

func (s *generationService) RemedialWork(ctx context.Context, student *roster.Student) (string, error) {
	if student == nil {
		return "", fmt.Errorf("remedial work: nil student")
	}
	return s.text(ctx, "remedial_work", collab.AgentAnalyst, remedialWorkPrompt(student), msgAgentFailed)
}

func (s *generationService) CommonErrors(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("common errors: empty topic")
	}
	return s.text(ctx, "common_errors", collab.AgentAnalyst, commonErrorsPrompt(topic), msgAgentFailed)
}

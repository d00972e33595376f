package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
)

type geminiCall struct {
	System string
	User   string
	Schema *gemini.Schema
}

// stubClient returns text or decodes jsonOut into the caller's target.
type stubClient struct {
	calls   []geminiCall
	text    string
	jsonOut string
	err     error
}

func (c *stubClient) GenerateText(_ context.Context, system, user string) (string, error) {
	c.calls = append(c.calls, geminiCall{System: system, User: user})
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func (c *stubClient) GenerateJSON(_ context.Context, system, user string, schema *gemini.Schema, out any) error {
	c.calls = append(c.calls, geminiCall{System: system, User: user, Schema: schema})
	if c.err != nil {
		return c.err
	}
	return json.Unmarshal([]byte(c.jsonOut), out)
}

func (c *stubClient) Enabled() bool { return true }

func newGenFixture(t *testing.T, client *stubClient) (*generationService, FeedbackLog) {
	t.Helper()
	log := testLogger(t)
	fb := NewFeedbackLog(log, kvstore.NewMemory())
	svc := NewGenerationService(log, client, agents.MustDefaultPersonas(), fb).(*generationService)
	return svc, fb
}

func TestFeedbackReviewWithEmptyLogSkipsModel(t *testing.T) {
	client := &stubClient{text: "unused"}
	svc, _ := newGenFixture(t, client)
	out, err := svc.AgentResponse(context.Background(), "Please review agent feedback", collab.AgentAnalyst)
	if err != nil {
		t.Fatalf("AgentResponse: %v", err)
	}
	if out != NoFeedbackReply {
		t.Fatalf("reply=%q", out)
	}
	if len(client.calls) != 0 {
		t.Fatalf("model was called %d times", len(client.calls))
	}
}

func TestFeedbackReviewEmbedsLog(t *testing.T) {
	client := &stubClient{text: "report"}
	svc, fb := newGenFixture(t, client)
	ctx := context.Background()
	_, _ = fb.Append(ctx, collab.FeedbackEntry{MessageID: "m1", AgentName: collab.AgentOptimizer, ResponseText: "too long", Feedback: collab.RatingDown})

	if _, err := svc.AgentResponse(ctx, "review agent feedback", collab.AgentAnalyst); err != nil {
		t.Fatalf("AgentResponse: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("calls=%d", len(client.calls))
	}
	user := client.calls[0].User
	if !strings.Contains(user, "--- FEEDBACK DATA (JSON) ---") || !strings.Contains(user, `"messageId":"m1"`) {
		t.Fatalf("prompt missing feedback data:\n%s", user)
	}
	if client.calls[0].System != agents.MustDefaultPersonas().SystemInstruction(collab.AgentAnalyst) {
		t.Fatalf("wrong system instruction")
	}
}

func TestPlainPromptPassesThrough(t *testing.T) {
	client := &stubClient{text: "ok"}
	svc, _ := newGenFixture(t, client)
	if _, err := svc.AgentResponse(context.Background(), "assess the quiz", collab.AgentEvaluator); err != nil {
		t.Fatalf("AgentResponse: %v", err)
	}
	if client.calls[0].User != "assess the quiz" {
		t.Fatalf("prompt rewritten: %q", client.calls[0].User)
	}
}

func TestGenerationErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid_key", err: fmt.Errorf("%w: 400", gemini.ErrInvalidCredential), want: msgInvalidKey},
		{name: "disabled", err: gemini.ErrClientDisabled, want: msgClientDisabled},
		{name: "other", err: errors.New("connection reset"), want: msgAgentFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newGenFixture(t, &stubClient{err: tc.err})
			_, err := svc.AgentResponse(context.Background(), "hello", collab.AgentAnalyst)
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err=%v is not a GenerationError", err)
			}
			if genErr.Error() != tc.want || !errors.Is(err, tc.err) {
				t.Fatalf("message=%q cause=%v", genErr.Error(), genErr.Err)
			}
		})
	}
}

const planJSON = `{"title":"Graphs","learningObjectives":["BFS"],"difficulty":"Beginner",
"lessonStructure":[{"sectionTitle":"Intro","content":"c","estimatedTime":"5 min"}],
"examples":[],"assessmentQuestions":[],"professorNotes":"model should not set this"}`

func TestGenerateLessonPlanAssignsIncreasingIDs(t *testing.T) {
	client := &stubClient{jsonOut: planJSON}
	svc, _ := newGenFixture(t, client)
	fixed := time.UnixMilli(1700000000000)
	svc.now = func() time.Time { return fixed }

	ctx := context.Background()
	req := LessonPlanRequest{Topic: "Graphs", Objectives: "BFS", Difficulty: "Beginner"}
	a, err := svc.GenerateLessonPlan(ctx, req)
	if err != nil {
		t.Fatalf("GenerateLessonPlan: %v", err)
	}
	b, _ := svc.GenerateLessonPlan(ctx, req)
	if a.ID != "lp-1700000000000" || b.ID != "lp-1700000000001" {
		t.Fatalf("ids=%s,%s", a.ID, b.ID)
	}
	if a.ProfessorNotes != "" {
		t.Fatalf("generated plan carried notes: %q", a.ProfessorNotes)
	}
	if client.calls[0].Schema == nil {
		t.Fatalf("lesson plan request must be schema constrained")
	}
}

func TestRefineLessonPlanKeepsIDAndNotes(t *testing.T) {
	client := &stubClient{jsonOut: planJSON}
	svc, _ := newGenFixture(t, client)
	orig := &planning.LessonPlan{ID: "lp-7", Title: "Old", ProfessorNotes: "mine"}
	refined, err := svc.RefineLessonPlan(context.Background(), orig, "Recommendation: add BFS demo")
	if err != nil {
		t.Fatalf("RefineLessonPlan: %v", err)
	}
	if refined.ID != "lp-7" || refined.ProfessorNotes != "mine" || refined.Title != "Graphs" {
		t.Fatalf("refined=%+v", refined)
	}
	if !strings.Contains(client.calls[0].User, "Recommendation: add BFS demo") {
		t.Fatalf("feedback missing from prompt")
	}
}

func TestOptimizeAssetFailureIsGeneric(t *testing.T) {
	client := &stubClient{err: gemini.ErrMalformedResponse}
	svc, _ := newGenFixture(t, client)
	_, err := svc.OptimizeAsset(context.Background(), &planning.EvaluableAsset{ID: "quiz-001"}, "report")
	if err == nil || err.Error() != msgOptimizeFailed {
		t.Fatalf("err=%v", err)
	}
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type agentCall struct {
	Agent  collab.AgentName
	Prompt string
}

// fakeGen answers agent prompts from a canned table. gate, when set, blocks
// AgentResponse until it is closed or receives.
type fakeGen struct {
	mu      sync.Mutex
	calls   []agentCall
	replies map[collab.AgentName]string
	err     error
	gate    chan struct{}
	started chan struct{}

	refineErr error
	refined   []string
}

func newFakeGen() *fakeGen {
	return &fakeGen{replies: map[collab.AgentName]string{}}
}

func (f *fakeGen) AgentResponse(ctx context.Context, prompt string, agent collab.AgentName) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, agentCall{Agent: agent, Prompt: prompt})
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.replies[agent], nil
}

func (f *fakeGen) Calls() []agentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agentCall(nil), f.calls...)
}

func (f *fakeGen) GenerateLessonPlan(ctx context.Context, req LessonPlanRequest) (*planning.LessonPlan, error) {
	return &planning.LessonPlan{
		ID:                 "lp-1",
		Title:              req.Topic,
		Difficulty:         planning.Difficulty(req.Difficulty),
		LearningObjectives: []string{req.Objectives},
		LessonStructure:    []planning.LessonSection{{SectionTitle: "Intro", Content: "c", EstimatedTime: "5 min"}},
	}, nil
}

func (f *fakeGen) RefineLessonPlan(ctx context.Context, plan *planning.LessonPlan, feedback string) (*planning.LessonPlan, error) {
	f.mu.Lock()
	f.refined = append(f.refined, feedback)
	f.mu.Unlock()
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	out := *plan
	out.Title = plan.Title + " (refined)"
	return &out, nil
}

func (f *fakeGen) EvaluateAsset(ctx context.Context, asset *planning.EvaluableAsset) (string, error) {
	return "Looks good. Recommendation: simplify Q2.", nil
}

func (f *fakeGen) OptimizeAsset(ctx context.Context, asset *planning.EvaluableAsset, report string) (*planning.AssetContent, error) {
	return &planning.AssetContent{Questions: []planning.Question{{ID: "q1", Text: "Simplified", Type: "Short Answer"}}}, nil
}

func (f *fakeGen) ObservatoryInsights(ctx context.Context, students []*roster.Student) (string, error) {
	return "observatory", nil
}

func (f *fakeGen) StudentFeedback(ctx context.Context, st *roster.Student) (string, error) {
	return "feedback for " + st.Name, nil
}

func (f *fakeGen) StudentMisconceptions(ctx context.Context, st *roster.Student) (string, error) {
	return "misconceptions for " + st.Name, nil
}

func (f *fakeGen) RemedialWork(ctx context.Context, st *roster.Student) (string, error) {
	return "remedial for " + st.Name, nil
}

func (f *fakeGen) CommonErrors(ctx context.Context, topic string) (string, error) {
	return "errors in " + topic, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (c *captureNotifier) Notify(_ context.Context, msg realtime.SSEMessage) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *captureNotifier) Count(event realtime.SSEEvent) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

// memPlans is an in-memory LessonPlanRepo.
type memPlans struct {
	mu    sync.Mutex
	plans map[string]planning.LessonPlan
}

func newMemPlans() *memPlans { return &memPlans{plans: map[string]planning.LessonPlan{}} }

func (m *memPlans) Save(_ dbctx.Context, plan *planning.LessonPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = *plan
	return nil
}

func (m *memPlans) GetByID(_ dbctx.Context, id string) (*planning.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPlans) List(_ dbctx.Context, _ int) ([]*planning.LessonPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*planning.LessonPlan, 0, len(m.plans))
	for _, p := range m.plans {
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (m *memPlans) UpdateNotes(_ dbctx.Context, id, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil
	}
	p.ProfessorNotes = notes
	m.plans[id] = p
	return nil
}

func nilDBC() dbctx.Context { return dbctx.New(context.Background()) }

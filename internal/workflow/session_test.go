package workflow

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
)

type fakeEvaluator struct {
	report string
	err    error
	calls  int
	gate   chan struct{}
}

func (f *fakeEvaluator) EvaluateAsset(_ context.Context, _ *planning.EvaluableAsset) (string, error) {
	f.calls++
	if f.gate != nil {
		<-f.gate
	}
	return f.report, f.err
}

type fakeOptimizer struct {
	content *planning.AssetContent
	err     error
	report  string
}

func (f *fakeOptimizer) OptimizeAsset(_ context.Context, _ *planning.EvaluableAsset, report string) (*planning.AssetContent, error) {
	f.report = report
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*planning.EvaluableAsset
	err   error
}

func (f *fakeSaver) SaveAsset(_ context.Context, a *planning.EvaluableAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func testAsset() *planning.EvaluableAsset {
	return &planning.EvaluableAsset{
		ID:    "quiz-001",
		Title: "Merge Sort Quiz",
		Type:  planning.AssetQuiz,
		Content: planning.AssetContent{Questions: []planning.Question{
			{ID: "q1", Text: "What is the time complexity of merge sort?", Type: "Multiple Choice", Options: []string{"O(n)", "O(n log n)"}, Answer: "O(n log n)"},
			{ID: "q2", Text: "Explain the merge step.", Type: "Short Answer"},
		}},
		QuestionCount: 2,
	}
}

func optimizedContent() *planning.AssetContent {
	return &planning.AssetContent{Questions: []planning.Question{
		{ID: "q1", Text: "What is the time complexity of merge sort?", Type: "Multiple Choice", Options: []string{"O(n)", "O(n log n)"}, Answer: "O(n log n)"},
		{ID: "q2", Text: "Describe how two sorted halves are merged.", Type: "Short Answer"},
		{ID: "q3", Text: "Implement merge.", Type: "Coding"},
	}}
}

func evaluatedSession(t *testing.T, deps Deps) *Session {
	t.Helper()
	s := NewSession("s1", deps)
	if err := s.Select(testAsset()); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := s.RequestEvaluation(context.Background()); err != nil {
		t.Fatalf("RequestEvaluation: %v", err)
	}
	return s
}

func TestScenarioEvaluateWithRecommendation(t *testing.T) {
	eval := &fakeEvaluator{report: "Looks good. Recommendation: simplify Q2.", gate: make(chan struct{})}
	var mu sync.Mutex
	var states []State
	s := NewSession("s1", Deps{
		Evaluator: eval,
		Optimizer: &fakeOptimizer{},
		OnChange: func(snap Snapshot) {
			mu.Lock()
			states = append(states, snap.State)
			mu.Unlock()
		},
	})
	if err := s.Select(testAsset()); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := s.Snapshot(); got.State != StateWelcome || !got.Has(AffordEvaluate) {
		t.Fatalf("after select: %+v", got)
	}

	done := make(chan error, 1)
	go func() { done <- s.RequestEvaluation(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for s.Snapshot().State != StateEvaluating {
		select {
		case <-deadline:
			t.Fatalf("session never entered evaluating")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(eval.gate)
	if err := <-done; err != nil {
		t.Fatalf("RequestEvaluation: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateEvaluationResult {
		t.Fatalf("state=%s want evaluation_result", snap.State)
	}
	if snap.Report != "Looks good. Recommendation: simplify Q2." {
		t.Fatalf("report=%q", snap.Report)
	}
	if !snap.Has(AffordOptimize) || !snap.OptimizeRecommended {
		t.Fatalf("expected optimize affordance, got %+v", snap)
	}
	if !snap.Has(AffordSaveReport) || snap.ReportSource != ReportNew {
		t.Fatalf("expected unsaved new report, got %+v", snap)
	}
	if eval.calls != 1 {
		t.Fatalf("evaluator calls=%d want 1", eval.calls)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateWelcome, StateEvaluating, StateEvaluationResult}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("states=%v want %v", states, want)
	}
}

func TestBusyWhileProcessing(t *testing.T) {
	eval := &fakeEvaluator{report: "ok", gate: make(chan struct{})}
	s := NewSession("s1", Deps{Evaluator: eval, Optimizer: &fakeOptimizer{}})
	if err := s.Select(testAsset()); err != nil {
		t.Fatalf("Select: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.RequestEvaluation(context.Background()) }()
	for s.Snapshot().State != StateEvaluating {
		time.Sleep(time.Millisecond)
	}

	if err := s.RequestEvaluation(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second evaluation err=%v want ErrBusy", err)
	}
	if err := s.Select(testAsset()); !errors.Is(err, ErrBusy) {
		t.Fatalf("select err=%v want ErrBusy", err)
	}
	if err := s.Optimize(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("optimize err=%v want ErrBusy", err)
	}
	if got := s.Snapshot().Affordances; len(got) != 0 {
		t.Fatalf("processing snapshot should expose no affordances, got %v", got)
	}

	close(eval.gate)
	if err := <-done; err != nil {
		t.Fatalf("RequestEvaluation: %v", err)
	}
	if eval.calls != 1 {
		t.Fatalf("evaluator calls=%d want 1", eval.calls)
	}
}

func TestOptimizeThenDiscardKeepsContent(t *testing.T) {
	saver := &fakeSaver{}
	s := evaluatedSession(t, Deps{
		Evaluator: &fakeEvaluator{report: "Recommendation: rewrite q2"},
		Optimizer: &fakeOptimizer{content: optimizedContent()},
		Assets:    saver,
	})
	before := s.Snapshot().Asset.Content

	if err := s.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateComparison || !snap.Has(AffordSave) || !snap.Has(AffordDiscard) {
		t.Fatalf("comparison snapshot: %+v", snap)
	}
	if err := s.DiscardChanges(); err != nil {
		t.Fatalf("DiscardChanges: %v", err)
	}
	after := s.Snapshot()
	if after.State != StateEvaluationResult {
		t.Fatalf("state=%s", after.State)
	}
	if !reflect.DeepEqual(after.Asset.Content, before) {
		t.Fatalf("content changed on discard:\n got %+v\nwant %+v", after.Asset.Content, before)
	}
	if len(saver.saved) != 0 {
		t.Fatalf("discard must not persist, saved=%d", len(saver.saved))
	}
}

func TestOptimizeThenSaveReplacesExactly(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	saver := &fakeSaver{}
	opt := &fakeOptimizer{content: optimizedContent()}
	s := evaluatedSession(t, Deps{
		Evaluator: &fakeEvaluator{report: "Recommendation: rewrite q2"},
		Optimizer: opt,
		Assets:    saver,
		Now:       func() time.Time { return now },
	})
	if err := s.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if opt.report != "Recommendation: rewrite q2" {
		t.Fatalf("optimizer got report %q", opt.report)
	}
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateEvaluationResult {
		t.Fatalf("state=%s", snap.State)
	}
	if !reflect.DeepEqual(snap.Asset.Content, *optimizedContent()) {
		t.Fatalf("content not replaced exactly: %+v", snap.Asset.Content)
	}
	if snap.Asset.QuestionCount != 3 {
		t.Fatalf("QuestionCount=%d want 3", snap.Asset.QuestionCount)
	}
	if snap.Asset.LastEvaluated == nil || !snap.Asset.LastEvaluated.Equal(now) {
		t.Fatalf("LastEvaluated=%v", snap.Asset.LastEvaluated)
	}
	if len(saver.saved) != 1 || saver.saved[0].QuestionCount != 3 {
		t.Fatalf("saved=%+v", saver.saved)
	}
}

func TestSaveFailureStaysInComparison(t *testing.T) {
	s := evaluatedSession(t, Deps{
		Evaluator: &fakeEvaluator{report: "r"},
		Optimizer: &fakeOptimizer{content: optimizedContent()},
		Assets:    &fakeSaver{err: errors.New("db down")},
	})
	if err := s.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := s.SaveChanges(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	snap := s.Snapshot()
	if snap.State != StateComparison || snap.Error == "" {
		t.Fatalf("snapshot after failed save: %+v", snap)
	}
	if len(snap.Asset.Content.Questions) != 2 {
		t.Fatalf("asset must be unchanged after failed save")
	}
}

func TestFailureReturnsToPreviousState(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("upstream unavailable")}
	s := NewSession("s1", Deps{Evaluator: eval, Optimizer: &fakeOptimizer{err: errors.New("bad json")}})
	if err := s.Select(testAsset()); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := s.RequestEvaluation(context.Background()); err == nil {
		t.Fatalf("expected evaluation error")
	}
	snap := s.Snapshot()
	if snap.State != StateWelcome || snap.Error != "upstream unavailable" {
		t.Fatalf("after failed evaluation: %+v", snap)
	}

	eval.err = nil
	eval.report = "fine"
	if err := s.RequestEvaluation(context.Background()); err != nil {
		t.Fatalf("RequestEvaluation: %v", err)
	}
	if err := s.Optimize(context.Background()); err == nil {
		t.Fatalf("expected optimize error")
	}
	snap = s.Snapshot()
	if snap.State != StateEvaluationResult || snap.Error != "bad json" || snap.Report != "fine" {
		t.Fatalf("after failed optimize: %+v", snap)
	}
}

func TestInvalidTransitions(t *testing.T) {
	s := NewSession("s1", Deps{Evaluator: &fakeEvaluator{report: "r"}, Optimizer: &fakeOptimizer{}})
	if err := s.RequestEvaluation(context.Background()); !errors.Is(err, ErrNoAsset) {
		t.Fatalf("evaluate without asset err=%v", err)
	}
	if err := s.Select(nil); !errors.Is(err, ErrNoAsset) {
		t.Fatalf("select nil err=%v", err)
	}
	if err := s.Select(testAsset()); err != nil {
		t.Fatalf("Select: %v", err)
	}
	cases := []struct {
		name string
		fn   func() error
	}{
		{"optimize_from_welcome", func() error { return s.Optimize(context.Background()) }},
		{"save_from_welcome", func() error { return s.SaveChanges(context.Background()) }},
		{"discard_from_welcome", s.DiscardChanges},
		{"save_report_from_welcome", func() error { return s.SaveReport(context.Background()) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("err=%v want ErrInvalidTransition", err)
			}
		})
	}
}

func TestSaveReportAndReselect(t *testing.T) {
	saver := &fakeSaver{}
	s := evaluatedSession(t, Deps{
		Evaluator: &fakeEvaluator{report: "Clarity 4/5"},
		Optimizer: &fakeOptimizer{},
		Assets:    saver,
	})
	if err := s.SaveReport(context.Background()); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	snap := s.Snapshot()
	if snap.ReportSource != ReportSaved || snap.Has(AffordSaveReport) {
		t.Fatalf("after save report: %+v", snap)
	}
	if len(saver.saved) != 1 || saver.saved[0].SavedReport != "Clarity 4/5" {
		t.Fatalf("saved=%+v", saver.saved)
	}
	if snap.OptimizeRecommended {
		t.Fatalf("report without recommendation should not flag optimize")
	}

	s2 := NewSession("s2", Deps{Evaluator: &fakeEvaluator{}, Optimizer: &fakeOptimizer{}})
	if err := s2.Select(saver.saved[0]); err != nil {
		t.Fatalf("Select: %v", err)
	}
	reopened := s2.Snapshot()
	if reopened.State != StateEvaluationResult || reopened.ReportSource != ReportSaved || reopened.Report != "Clarity 4/5" {
		t.Fatalf("reopened snapshot: %+v", reopened)
	}
}

func TestSelectCopiesAsset(t *testing.T) {
	a := testAsset()
	s := NewSession("s1", Deps{Evaluator: &fakeEvaluator{}, Optimizer: &fakeOptimizer{}})
	if err := s.Select(a); err != nil {
		t.Fatalf("Select: %v", err)
	}
	a.Content.Questions[0].Text = "mutated"
	if got := s.Snapshot().Asset.Content.Questions[0].Text; got == "mutated" {
		t.Fatalf("session shares question storage with caller")
	}
}

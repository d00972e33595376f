package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
)

type Evaluator interface {
	EvaluateAsset(ctx context.Context, asset *planning.EvaluableAsset) (string, error)
}

type Optimizer interface {
	OptimizeAsset(ctx context.Context, asset *planning.EvaluableAsset, report string) (*planning.AssetContent, error)
}

// AssetSaver persists asset changes made by SaveChanges and SaveReport.
type AssetSaver interface {
	SaveAsset(ctx context.Context, asset *planning.EvaluableAsset) error
}

type Deps struct {
	Evaluator Evaluator
	Optimizer Optimizer
	Assets    AssetSaver
	Now       func() time.Time
	// OnChange receives a snapshot after every state change, outside the session lock.
	OnChange func(Snapshot)
}

type Snapshot struct {
	SessionID           string                   `json:"sessionId"`
	State               State                    `json:"state"`
	Asset               *planning.EvaluableAsset `json:"asset,omitempty"`
	Report              string                   `json:"report,omitempty"`
	ReportSource        ReportSource             `json:"reportSource,omitempty"`
	OptimizeRecommended bool                     `json:"optimizeRecommended"`
	OptimizedContent    *planning.AssetContent   `json:"optimizedContent,omitempty"`
	Comparison          []QuestionDiff           `json:"comparison,omitempty"`
	Affordances         []Affordance             `json:"affordances"`
	Error               string                   `json:"error,omitempty"`
}

// Session is one instructor's evaluate/optimize/compare flow over a selected asset.
// Transitions take the single slot; while a request is outstanding every other
// transition fails fast with ErrBusy. Reads never wait on the slot.
type Session struct {
	id   string
	deps Deps
	slot *semaphore.Weighted

	mu        sync.Mutex
	state     State
	asset     *planning.EvaluableAsset
	report    string
	source    ReportSource
	optimized *planning.AssetContent
	lastErr   string
}

func NewSession(id string, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		id:    id,
		deps:  deps,
		slot:  semaphore.NewWeighted(1),
		state: StateWelcome,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) acquire() error {
	if !s.slot.TryAcquire(1) {
		return ErrBusy
	}
	return nil
}

func (s *Session) release() { s.slot.Release(1) }

// Select makes asset the subject of the session. A previously saved report reopens
// the session on that report; otherwise it starts at welcome.
func (s *Session) Select(asset *planning.EvaluableAsset) error {
	if asset == nil {
		return ErrNoAsset
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	cp := cloneAsset(asset)
	s.asset = cp
	s.optimized = nil
	s.lastErr = ""
	if strings.TrimSpace(cp.SavedReport) != "" {
		s.state = StateEvaluationResult
		s.report = cp.SavedReport
		s.source = ReportSaved
	} else {
		s.state = StateWelcome
		s.report = ""
		s.source = ReportNone
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// RequestEvaluation issues exactly one Evaluator call. On failure the session returns
// to the state it was in, carrying the error message.
func (s *Session) RequestEvaluation(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.asset == nil {
		s.mu.Unlock()
		return ErrNoAsset
	}
	if s.state != StateWelcome && s.state != StateEvaluationResult {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: evaluate from %s", ErrInvalidTransition, st)
	}
	prev := s.state
	s.state = StateEvaluating
	s.lastErr = ""
	asset := cloneAsset(s.asset)
	s.mu.Unlock()
	s.changed()

	report, err := s.deps.Evaluator.EvaluateAsset(context.WithoutCancel(ctx), asset)

	s.mu.Lock()
	if err != nil {
		s.state = prev
		s.lastErr = err.Error()
	} else {
		s.state = StateEvaluationResult
		s.report = report
		s.source = ReportNew
		s.optimized = nil
	}
	s.mu.Unlock()
	s.changed()
	return err
}

// Optimize hands the current report to the Optimizer. Success moves to comparison.
func (s *Session) Optimize(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.state != StateEvaluationResult || s.asset == nil {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: optimize from %s", ErrInvalidTransition, st)
	}
	s.state = StateOptimizing
	s.lastErr = ""
	asset := cloneAsset(s.asset)
	report := s.report
	s.mu.Unlock()
	s.changed()

	content, err := s.deps.Optimizer.OptimizeAsset(context.WithoutCancel(ctx), asset, report)

	s.mu.Lock()
	if err != nil {
		s.state = StateEvaluationResult
		s.lastErr = err.Error()
	} else {
		c := content.Clone()
		s.optimized = &c
		s.state = StateComparison
	}
	s.mu.Unlock()
	s.changed()
	return err
}

// SaveChanges replaces the asset content with the optimized content exactly and persists it.
// If persisting fails the session stays in comparison.
func (s *Session) SaveChanges(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.state != StateComparison || s.optimized == nil {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: save from %s", ErrInvalidTransition, st)
	}
	next := cloneAsset(s.asset)
	next.Content = s.optimized.Clone()
	next.QuestionCount = len(next.Content.Questions)
	now := s.deps.Now()
	next.LastEvaluated = &now
	s.mu.Unlock()

	if s.deps.Assets != nil {
		if err := s.deps.Assets.SaveAsset(ctx, next); err != nil {
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
			s.changed()
			return fmt.Errorf("save optimized asset: %w", err)
		}
	}

	s.mu.Lock()
	s.asset = next
	s.optimized = nil
	s.state = StateEvaluationResult
	s.lastErr = ""
	s.mu.Unlock()
	s.changed()
	return nil
}

// DiscardChanges drops the optimized content; the asset is untouched.
func (s *Session) DiscardChanges() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.state != StateComparison {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: discard from %s", ErrInvalidTransition, st)
	}
	s.optimized = nil
	s.state = StateEvaluationResult
	s.lastErr = ""
	s.mu.Unlock()
	s.changed()
	return nil
}

// SaveReport stores a freshly generated report on the asset.
func (s *Session) SaveReport(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.state != StateEvaluationResult || s.source != ReportNew {
		st, src := s.state, s.source
		s.mu.Unlock()
		return fmt.Errorf("%w: save report from %s (source %q)", ErrInvalidTransition, st, src)
	}
	next := cloneAsset(s.asset)
	next.SavedReport = s.report
	s.mu.Unlock()

	if s.deps.Assets != nil {
		if err := s.deps.Assets.SaveAsset(ctx, next); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}

	s.mu.Lock()
	s.asset = next
	s.source = ReportSaved
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:    s.id,
		State:        s.state,
		Report:       s.report,
		ReportSource: s.source,
		Error:        s.lastErr,
		Affordances:  []Affordance{},
	}
	if s.asset != nil {
		snap.Asset = cloneAsset(s.asset)
	}
	if s.state == StateEvaluationResult || s.state == StateComparison {
		snap.OptimizeRecommended = strings.Contains(strings.ToLower(s.report), "recommendation")
	}
	switch s.state {
	case StateWelcome:
		if s.asset != nil {
			snap.Affordances = append(snap.Affordances, AffordEvaluate)
		}
	case StateEvaluationResult:
		snap.Affordances = append(snap.Affordances, AffordEvaluate, AffordOptimize)
		if s.source == ReportNew {
			snap.Affordances = append(snap.Affordances, AffordSaveReport)
		}
	case StateComparison:
		snap.Affordances = append(snap.Affordances, AffordSave, AffordDiscard)
		if s.optimized != nil && s.asset != nil {
			c := s.optimized.Clone()
			snap.OptimizedContent = &c
			snap.Comparison = Compare(s.asset.Content, c)
		}
	}
	return snap
}

func (s *Session) changed() {
	if s.deps.OnChange == nil {
		return
	}
	s.deps.OnChange(s.Snapshot())
}

func (snap Snapshot) Has(a Affordance) bool {
	for _, x := range snap.Affordances {
		if x == a {
			return true
		}
	}
	return false
}

func cloneAsset(a *planning.EvaluableAsset) *planning.EvaluableAsset {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Content = a.Content.Clone()
	if a.LastEvaluated != nil {
		t := *a.LastEvaluated
		cp.LastEvaluated = &t
	}
	return &cp
}

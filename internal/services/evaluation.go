package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
	"github.com/yungbote/eduplanner-backend/internal/workflow"
)

// EvaluationService owns the evaluate/optimize/compare sessions.
// A failed generation call is not an error here: the returned snapshot carries it.
type EvaluationService interface {
	ListAssets(ctx context.Context, filter planning.AssetFilter) ([]*planning.EvaluableAsset, error)
	GetAsset(ctx context.Context, id string) (*planning.EvaluableAsset, error)

	CreateSession(ctx context.Context) workflow.Snapshot
	Snapshot(sessionID string) (workflow.Snapshot, error)
	Select(ctx context.Context, sessionID, assetID string) (workflow.Snapshot, error)
	Evaluate(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	Optimize(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	SaveChanges(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	DiscardChanges(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	SaveReport(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	CloseSession(sessionID string)
}

type assetSaver struct {
	assets repos.AssetRepo
}

func (a assetSaver) SaveAsset(ctx context.Context, asset *planning.EvaluableAsset) error {
	return a.assets.Save(dbctx.New(ctx), asset)
}

type evaluationService struct {
	log    *logger.Logger
	assets repos.AssetRepo
	gen    GenerationService
	notify realtime.Notifier

	mu       sync.RWMutex
	sessions map[string]*workflow.Session
}

func NewEvaluationService(log *logger.Logger, assets repos.AssetRepo, gen GenerationService, notify realtime.Notifier) EvaluationService {
	if notify == nil {
		notify = realtime.Nop{}
	}
	return &evaluationService{
		log:      log.With("service", "EvaluationService"),
		assets:   assets,
		gen:      gen,
		notify:   notify,
		sessions: make(map[string]*workflow.Session),
	}
}

func (s *evaluationService) ListAssets(ctx context.Context, filter planning.AssetFilter) ([]*planning.EvaluableAsset, error) {
	switch filter {
	case "", planning.FilterAll, planning.FilterQuiz, planning.FilterAssignment:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	return s.assets.List(dbctx.New(ctx), filter)
}

func (s *evaluationService) GetAsset(ctx context.Context, id string) (*planning.EvaluableAsset, error) {
	a, err := s.assets.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if a == nil {
		return nil, ErrAssetNotFound
	}
	return a, nil
}

func (s *evaluationService) CreateSession(ctx context.Context) workflow.Snapshot {
	id := uuid.NewString()
	sess := workflow.NewSession(id, workflow.Deps{
		Evaluator: s.gen,
		Optimizer: s.gen,
		Assets:    assetSaver{assets: s.assets},
		OnChange: func(snap workflow.Snapshot) {
			observability.Current().IncWorkflowState(string(snap.State))
			s.notify.Notify(context.Background(), realtime.SSEMessage{
				Channel: realtime.WorkflowChannel(snap.SessionID),
				Event:   realtime.SSEEventWorkflowState,
				Data:    snap,
			})
		},
	})
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.log.Info("Workflow session created", "session_id", id)
	return sess.Snapshot()
}

func (s *evaluationService) session(id string) (*workflow.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *evaluationService) Snapshot(sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *evaluationService) Select(ctx context.Context, sessionID, assetID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "select", func() error { return sess.Select(asset) })
}

func (s *evaluationService) Evaluate(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "evaluate", func() error { return sess.RequestEvaluation(ctx) })
}

func (s *evaluationService) Optimize(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "optimize", func() error { return sess.Optimize(ctx) })
}

func (s *evaluationService) SaveChanges(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "save_changes", func() error { return sess.SaveChanges(ctx) })
}

func (s *evaluationService) DiscardChanges(_ context.Context, sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "discard_changes", sess.DiscardChanges)
}

func (s *evaluationService) SaveReport(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return s.run(sess, "save_report", func() error { return sess.SaveReport(ctx) })
}

func (s *evaluationService) run(sess *workflow.Session, op string, fn func() error) (workflow.Snapshot, error) {
	err := fn()
	snap := sess.Snapshot()
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		s.log.Warn("Workflow generation failed", "session_id", sess.ID(), "op", op, "error", genErr.Err)
		return snap, nil
	}
	return snap, err
}

func (s *evaluationService) CloseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

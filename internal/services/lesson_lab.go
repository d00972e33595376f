package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/clients/gcp"
	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/pkg/dbctx"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
)

const exportContentType = "application/json"

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// ExportFilename is lesson-plan-<slug>.json where the slug is the lowercased title
// with every non [a-z0-9] byte replaced by '-' and runs of '-' collapsed.
func ExportFilename(title string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return "lesson-plan-" + slug + ".json"
}

type LessonPlanExport struct {
	Filename    string
	ContentType string
	Body        []byte
	// ArchiveURI is set when a copy was stored in the export bucket.
	ArchiveURI string
}

type NotesSavedEvent struct {
	PlanID  string    `json:"planId"`
	Notes   string    `json:"notes"`
	SavedAt time.Time `json:"savedAt"`
}

type LessonLabService interface {
	Generate(ctx context.Context, req LessonPlanRequest) (*planning.LessonPlan, error)
	Refine(ctx context.Context, planID, feedback string) (*planning.LessonPlan, error)
	// Get returns the stored plan with any saved notes applied.
	Get(ctx context.Context, planID string) (*planning.LessonPlan, error)
	List(ctx context.Context, limit int) ([]*planning.LessonPlan, error)

	SaveNotes(ctx context.Context, planID, notes string) error
	LoadNotes(ctx context.Context, planID string) (string, bool, error)
	// EditNotes queues notes for the debounced autosave.
	EditNotes(ctx context.Context, planID, notes string) error
	FlushNotes(planID string)

	// Export renders the plan with notes (or the saved notes when nil) as indented JSON.
	Export(ctx context.Context, planID string, notes *string) (*LessonPlanExport, error)

	PutHandoff(ctx context.Context, plan *planning.LessonPlan) (string, error)
	// TakeHandoff consumes token; a second take reports ErrHandoffNotFound.
	TakeHandoff(ctx context.Context, token string) (*planning.LessonPlan, error)

	Close()
}

type LessonLabConfig struct {
	HandoffTTL time.Duration
	NotesQuiet time.Duration
	Clock      Clock
}

type lessonLabService struct {
	log      *logger.Logger
	gen      GenerationService
	plans    repos.LessonPlanRepo
	store    kvstore.Store
	archive  gcp.ExportArchive
	notify   realtime.Notifier
	autosave *NotesAutosaver
	cfg      LessonLabConfig
	now      func() time.Time
}

// NewLessonLabService wires the lab. archive may be nil.
func NewLessonLabService(
	log *logger.Logger,
	gen GenerationService,
	plans repos.LessonPlanRepo,
	store kvstore.Store,
	archive gcp.ExportArchive,
	notify realtime.Notifier,
	cfg LessonLabConfig,
) LessonLabService {
	if notify == nil {
		notify = realtime.Nop{}
	}
	if cfg.HandoffTTL <= 0 {
		cfg.HandoffTTL = 15 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	s := &lessonLabService{
		log:     log.With("service", "LessonLabService"),
		gen:     gen,
		plans:   plans,
		store:   store,
		archive: archive,
		notify:  notify,
		cfg:     cfg,
		now:     cfg.Clock.Now,
	}
	s.autosave = NewNotesAutosaver(log, notesSaverFunc(s.writeNotes), cfg.Clock, cfg.NotesQuiet)
	return s
}

func (s *lessonLabService) Generate(ctx context.Context, req LessonPlanRequest) (*planning.LessonPlan, error) {
	plan, err := s.gen.GenerateLessonPlan(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.plans.Save(dbctx.New(ctx), plan); err != nil {
		return nil, fmt.Errorf("save lesson plan: %w", err)
	}
	s.log.Info("Lesson plan generated", "plan_id", plan.ID, "difficulty", plan.Difficulty)
	return plan, nil
}

func (s *lessonLabService) Refine(ctx context.Context, planID, feedback string) (*planning.LessonPlan, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, ErrEmptyPrompt
	}
	current, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	refined, err := s.gen.RefineLessonPlan(ctx, current, feedback)
	if err != nil {
		return nil, err
	}
	if err := s.plans.Save(dbctx.New(ctx), refined); err != nil {
		return nil, fmt.Errorf("save refined lesson plan: %w", err)
	}
	s.notify.Notify(ctx, realtime.SSEMessage{
		Channel: realtime.LessonPlanChannel(refined.ID),
		Event:   realtime.SSEEventLessonPlanReady,
		Data:    refined,
	})
	return refined, nil
}

func (s *lessonLabService) Get(ctx context.Context, planID string) (*planning.LessonPlan, error) {
	plan, err := s.plans.GetByID(dbctx.New(ctx), planID)
	if err != nil {
		return nil, fmt.Errorf("load lesson plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if err := s.applySavedNotes(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *lessonLabService) applySavedNotes(ctx context.Context, plan *planning.LessonPlan) error {
	notes, ok, err := s.LoadNotes(ctx, plan.ID)
	if err != nil {
		return err
	}
	// Stored notes win even when cleared to "".
	if ok {
		plan.ProfessorNotes = notes
	}
	return nil
}

func (s *lessonLabService) List(ctx context.Context, limit int) ([]*planning.LessonPlan, error) {
	return s.plans.List(dbctx.New(ctx), limit)
}

// SaveNotes is the explicit save; it supersedes any pending autosave for the plan.
func (s *lessonLabService) SaveNotes(ctx context.Context, planID, notes string) error {
	if strings.TrimSpace(planID) == "" {
		return ErrPlanNotFound
	}
	return s.autosave.Save(ctx, planID, notes)
}

func (s *lessonLabService) writeNotes(ctx context.Context, planID, notes string) error {
	if err := s.store.Set(ctx, kvstore.NotesKey(planID), notes, 0); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	// The row copy is a convenience for listing; the store is authoritative.
	if err := s.plans.UpdateNotes(dbctx.New(ctx), planID, notes); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn("Notes row update failed", "plan_id", planID, "error", err)
	}
	s.notify.Notify(ctx, realtime.SSEMessage{
		Channel: realtime.LessonPlanChannel(planID),
		Event:   realtime.SSEEventNotesSaved,
		Data:    NotesSavedEvent{PlanID: planID, Notes: notes, SavedAt: s.now()},
	})
	return nil
}

func (s *lessonLabService) LoadNotes(ctx context.Context, planID string) (string, bool, error) {
	notes, ok, err := s.store.Get(ctx, kvstore.NotesKey(planID))
	if err != nil {
		return "", false, fmt.Errorf("load notes: %w", err)
	}
	return notes, ok, nil
}

func (s *lessonLabService) EditNotes(ctx context.Context, planID, notes string) error {
	plan, err := s.plans.GetByID(dbctx.New(ctx), planID)
	if err != nil {
		return fmt.Errorf("load lesson plan: %w", err)
	}
	if plan == nil {
		return ErrPlanNotFound
	}
	s.autosave.Edit(planID, notes)
	return nil
}

func (s *lessonLabService) FlushNotes(planID string) { s.autosave.Flush(planID) }

func (s *lessonLabService) Export(ctx context.Context, planID string, notes *string) (*LessonPlanExport, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		plan.ProfessorNotes = *notes
	}
	body, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	out := &LessonPlanExport{
		Filename:    ExportFilename(plan.Title),
		ContentType: exportContentType,
		Body:        body,
	}
	if s.archive != nil {
		uri, err := s.archive.Put(ctx, path.Join(plan.ID, out.Filename), bytes.NewReader(body), exportContentType)
		if err != nil {
			s.log.Warn("Export archive failed", "plan_id", plan.ID, "error", err)
		} else {
			out.ArchiveURI = uri
		}
	}
	return out, nil
}

func (s *lessonLabService) PutHandoff(ctx context.Context, plan *planning.LessonPlan) (string, error) {
	if plan == nil || plan.ID == "" {
		return "", ErrNoActivePlan
	}
	merged := *plan
	plan = &merged
	if err := s.applySavedNotes(ctx, plan); err != nil {
		return "", err
	}
	if err := s.plans.Save(dbctx.New(ctx), plan); err != nil {
		return "", fmt.Errorf("save handed-off plan: %w", err)
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encode handoff: %w", err)
	}
	token := uuid.NewString()
	if err := s.store.Set(ctx, kvstore.HandoffKey(token), string(raw), s.cfg.HandoffTTL); err != nil {
		return "", fmt.Errorf("store handoff: %w", err)
	}
	s.notify.Notify(ctx, realtime.SSEMessage{
		Channel: realtime.LessonPlanChannel(plan.ID),
		Event:   realtime.SSEEventLessonPlanReady,
		Data:    plan,
	})
	return token, nil
}

func (s *lessonLabService) TakeHandoff(ctx context.Context, token string) (*planning.LessonPlan, error) {
	raw, ok, err := s.store.Take(ctx, kvstore.HandoffKey(strings.TrimSpace(token)))
	if err != nil {
		return nil, fmt.Errorf("take handoff: %w", err)
	}
	if !ok {
		return nil, ErrHandoffNotFound
	}
	var plan planning.LessonPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	if err := s.applySavedNotes(ctx, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *lessonLabService) Close() { s.autosave.Close() }

package services

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// Timer is the part of *time.Timer the autosaver needs.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time                            { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func RealClock() Clock { return realClock{} }

// NotesSaver performs the actual write.
type NotesSaver interface {
	SaveNotes(ctx context.Context, planID, notes string) error
}

type notesSaverFunc func(ctx context.Context, planID, notes string) error

func (f notesSaverFunc) SaveNotes(ctx context.Context, planID, notes string) error {
	return f(ctx, planID, notes)
}

type pendingNotes struct {
	notes string
	timer Timer
	gen   uint64
}

// NotesAutosaver persists notes once per quiet period: every edit restarts the plan's
// timer and only the latest text is written when it fires. Every edit and explicit save
// takes a generation number; writes are serialized and a write older than the last one
// stored for the plan is dropped.
type NotesAutosaver struct {
	log   *logger.Logger
	saver NotesSaver
	clock Clock
	quiet time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingNotes
	written map[string]uint64
	gen     uint64
}

func NewNotesAutosaver(log *logger.Logger, saver NotesSaver, clock Clock, quiet time.Duration) *NotesAutosaver {
	if clock == nil {
		clock = RealClock()
	}
	if quiet <= 0 {
		quiet = time.Second
	}
	return &NotesAutosaver{
		log:     log.With("service", "NotesAutosaver"),
		saver:   saver,
		clock:   clock,
		quiet:   quiet,
		pending: make(map[string]*pendingNotes),
		written: make(map[string]uint64),
	}
}

// Edit records the latest notes for planID and (re)arms its timer.
func (a *NotesAutosaver) Edit(planID, notes string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	gen := a.gen
	if p, ok := a.pending[planID]; ok && p.timer != nil {
		p.timer.Stop()
	}
	p := &pendingNotes{notes: notes, gen: gen}
	p.timer = a.clock.AfterFunc(a.quiet, func() { a.fire(planID, gen) })
	a.pending[planID] = p
}

func (a *NotesAutosaver) fire(planID string, gen uint64) {
	a.mu.Lock()
	p, ok := a.pending[planID]
	if !ok || p.gen != gen {
		// superseded by a later edit or a flush
		a.mu.Unlock()
		return
	}
	delete(a.pending, planID)
	a.mu.Unlock()
	a.persist(planID, p)
}

// Save writes notes now and drops any pending edit for planID.
func (a *NotesAutosaver) Save(ctx context.Context, planID, notes string) error {
	a.mu.Lock()
	if p, ok := a.pending[planID]; ok {
		p.timer.Stop()
		delete(a.pending, planID)
	}
	a.gen++
	gen := a.gen
	a.mu.Unlock()
	return a.write(ctx, planID, notes, gen)
}

func (a *NotesAutosaver) persist(planID string, p *pendingNotes) {
	if err := a.write(context.Background(), planID, p.notes, p.gen); err != nil {
		a.log.Warn("Notes autosave failed", "plan_id", planID, "error", err)
	}
}

func (a *NotesAutosaver) write(ctx context.Context, planID, notes string, gen uint64) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	stale := a.written[planID] > gen
	a.mu.Unlock()
	if stale {
		return nil
	}
	if err := a.saver.SaveNotes(ctx, planID, notes); err != nil {
		return err
	}
	a.mu.Lock()
	a.written[planID] = gen
	a.mu.Unlock()
	return nil
}

// Pending reports whether planID has unsaved edits.
func (a *NotesAutosaver) Pending(planID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[planID]
	return ok
}

// Flush writes planID's pending notes now. It is a no-op without pending edits.
func (a *NotesAutosaver) Flush(planID string) {
	a.mu.Lock()
	p, ok := a.pending[planID]
	if ok {
		p.timer.Stop()
		delete(a.pending, planID)
	}
	a.mu.Unlock()
	if ok {
		a.persist(planID, p)
	}
}

// Close flushes every pending plan.
func (a *NotesAutosaver) Close() {
	a.mu.Lock()
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	for _, id := range ids {
		a.Flush(id)
	}
}

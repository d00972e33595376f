package kvstore

import (
	"context"
	"errors"
	"time"
)

const (
	FeedbackLogKey = "agentFeedback"
	notesPrefix    = "lessonPlanNotes-"
	handoffPrefix  = "handoff-"
)

func NotesKey(planID string) string { return notesPrefix + planID }

func HandoffKey(token string) string { return handoffPrefix + token }

var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is the persistence surface shared by feedback, notes and handoff.
// Values are opaque strings; callers own their encoding.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key; ttl <= 0 means no expiry. Last write wins.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it; only one caller ever observes a given write.
	Take(ctx context.Context, key string) (string, bool, error)
	// AppendUnique appends value to listKey unless itemID is already present.
	// It reports whether the value was appended.
	AppendUnique(ctx context.Context, listKey, itemID, value string) (bool, error)
	// List returns list values in append order.
	List(ctx context.Context, listKey string) ([]string, error)
	Close() error
}

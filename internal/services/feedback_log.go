package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// FeedbackLog is the append-only agent rating log, deduplicated by message id.
type FeedbackLog interface {
	Append(ctx context.Context, entry collab.FeedbackEntry) (bool, error)
	Entries(ctx context.Context) ([]collab.FeedbackEntry, error)
	Summary(ctx context.Context) ([]collab.AgentFeedbackSummary, error)
}

type feedbackLog struct {
	log   *logger.Logger
	store kvstore.Store
}

func NewFeedbackLog(log *logger.Logger, store kvstore.Store) FeedbackLog {
	return &feedbackLog{log: log.With("service", "FeedbackLog"), store: store}
}

func (f *feedbackLog) Append(ctx context.Context, entry collab.FeedbackEntry) (bool, error) {
	if strings.TrimSpace(entry.MessageID) == "" {
		return false, fmt.Errorf("feedback entry: missing message id")
	}
	if !entry.Feedback.Valid() {
		return false, fmt.Errorf("feedback entry: invalid rating %q", entry.Feedback)
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	added, err := f.store.AppendUnique(ctx, kvstore.FeedbackLogKey, entry.MessageID, string(raw))
	if err != nil {
		return false, fmt.Errorf("append feedback: %w", err)
	}
	if added {
		f.log.Info("Agent feedback logged", "message_id", entry.MessageID, "agent", entry.AgentName, "feedback", entry.Feedback)
	}
	return added, nil
}

func (f *feedbackLog) Entries(ctx context.Context) ([]collab.FeedbackEntry, error) {
	rows, err := f.store.List(ctx, kvstore.FeedbackLogKey)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	out := make([]collab.FeedbackEntry, 0, len(rows))
	for _, row := range rows {
		var e collab.FeedbackEntry
		if err := json.Unmarshal([]byte(row), &e); err != nil {
			f.log.Warn("Skipping unreadable feedback entry", "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *feedbackLog) Summary(ctx context.Context) ([]collab.AgentFeedbackSummary, error) {
	entries, err := f.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeFeedback(entries), nil
}

// SummarizeFeedback counts ratings per agent in board order. Entries for unknown
// agents are ignored. Satisfaction is the rounded share of up votes, 0 with no votes.
func SummarizeFeedback(entries []collab.FeedbackEntry) []collab.AgentFeedbackSummary {
	idx := make(map[collab.AgentName]int, len(collab.AllAgents))
	out := make([]collab.AgentFeedbackSummary, len(collab.AllAgents))
	for i, name := range collab.AllAgents {
		idx[name] = i
		out[i].Name = name
	}
	for _, e := range entries {
		i, ok := idx[e.AgentName]
		if !ok {
			continue
		}
		switch e.Feedback {
		case collab.RatingUp:
			out[i].Up++
		case collab.RatingDown:
			out[i].Down++
		}
	}
	for i := range out {
		if total := out[i].Up + out[i].Down; total > 0 {
			out[i].Satisfaction = int(math.Round(float64(out[i].Up) / float64(total) * 100))
		}
	}
	return out
}

package realtime

import "strings"

type SSEEvent string

const (
	SSEEventAgentStatus     SSEEvent = "AgentStatusChanged"
	SSEEventChatMessage     SSEEvent = "ChatMessageAppended"
	SSEEventFeedbackLogged  SSEEvent = "FeedbackLogged"
	SSEEventWorkflowState   SSEEvent = "WorkflowStateChanged"
	SSEEventNotesSaved      SSEEvent = "LessonPlanNotesSaved"
	SSEEventLessonPlanReady SSEEvent = "LessonPlanReady"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

func ChatChannel(sessionID string) string { return "chat:" + strings.TrimSpace(sessionID) }

func WorkflowChannel(sessionID string) string { return "workflow:" + strings.TrimSpace(sessionID) }

func LessonPlanChannel(planID string) string { return "lesson_plan:" + strings.TrimSpace(planID) }

package collab

import "time"

const SenderUser = "user"

type MessageKind string

const (
	KindPlainText    MessageKind = "plain_text"
	KindMarkdownText MessageKind = "markdown_text"
	KindActionPrompt MessageKind = "action_prompt"
)

type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

func (r Rating) Valid() bool { return r == RatingUp || r == RatingDown }

type ActionType string

const (
	ActionAskOptimizer   ActionType = "ask_optimizer"
	ActionViewLessonPlan ActionType = "view_lesson_plan"
)

type MessageAction struct {
	Type         ActionType `json:"type"`
	Label        string     `json:"label"`
	HandoffToken string     `json:"handoffToken,omitempty"`
}

// ChatMessage content is a tagged variant; rendering is left to the client.
type ChatMessage struct {
	ID        string         `json:"id"`
	Sender    string         `json:"sender"`
	Kind      MessageKind    `json:"kind"`
	Text      string         `json:"text"`
	RawText   string         `json:"rawText,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Feedback  *Rating        `json:"feedback,omitempty"`
	Action    *MessageAction `json:"action,omitempty"`
}

func (m *ChatMessage) FromAgent() bool {
	return m != nil && m.Sender != SenderUser
}

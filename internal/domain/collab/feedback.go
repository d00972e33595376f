package collab

// FeedbackEntry is one line of the agent feedback log.
type FeedbackEntry struct {
	MessageID    string    `json:"messageId"`
	AgentName    AgentName `json:"agentName"`
	ResponseText string    `json:"responseText"`
	Feedback     Rating    `json:"feedback"`
	Timestamp    string    `json:"timestamp"`
}

type AgentFeedbackSummary struct {
	Name         AgentName `json:"name"`
	Up           int       `json:"up"`
	Down         int       `json:"down"`
	Satisfaction int       `json:"satisfaction"`
}

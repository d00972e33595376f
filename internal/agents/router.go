package agents

import (
	"regexp"
	"strings"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
)

type rule struct {
	pattern *regexp.Regexp
	guard   func(lower string) bool
	agent   collab.AgentName
}

// Rules are evaluated in order; the first match wins. The order is the contract,
// the keyword lists are not exhaustive.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`\b(create|generate|refine|improve|optimizer)\b`),
		agent:   collab.AgentOptimizer,
	},
	{
		pattern: regexp.MustCompile(`\b(evaluate|evaluator|assess|effectiveness)\b`),
		guard:   func(lower string) bool { return !strings.Contains(lower, "agent feedback") },
		agent:   collab.AgentEvaluator,
	},
	{
		pattern: regexp.MustCompile(`\b(analyst|analyze|student|errors|patterns|review agent feedback)\b`),
		agent:   collab.AgentAnalyst,
	},
	{
		pattern: regexp.MustCompile(`\b(lesson|quiz|assignment)\b`),
		agent:   collab.AgentEvaluator,
	},
}

// Route picks the agent for a free-text prompt. It is total: unmatched text goes to the Analyst.
func Route(text string) collab.AgentName {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if !r.pattern.MatchString(lower) {
			continue
		}
		if r.guard != nil && !r.guard(lower) {
			continue
		}
		return r.agent
	}
	return collab.AgentAnalyst
}

// IsFeedbackReview reports whether an Analyst prompt asks for the feedback meta-analysis.
func IsFeedbackReview(text string) bool {
	return strings.Contains(strings.ToLower(text), "review agent feedback")
}

// HasRecommendation marks Evaluator replies that can be handed to the Optimizer.
func HasRecommendation(sender string, rawText string) bool {
	return sender == string(collab.AgentEvaluator) && strings.Contains(strings.ToLower(rawText), "recommendation")
}

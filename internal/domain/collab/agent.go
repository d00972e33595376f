package collab

type AgentName string

const (
	AgentEvaluator AgentName = "Evaluator"
	AgentOptimizer AgentName = "Optimizer"
	AgentAnalyst   AgentName = "Analyst"
)

// AllAgents is the board order.
var AllAgents = []AgentName{AgentEvaluator, AgentOptimizer, AgentAnalyst}

func (n AgentName) Valid() bool {
	switch n {
	case AgentEvaluator, AgentOptimizer, AgentAnalyst:
		return true
	}
	return false
}

type AgentStatus string

const (
	AgentIdle       AgentStatus = "Idle"
	AgentProcessing AgentStatus = "Processing"
	AgentReplying   AgentStatus = "Replying"
)

type Agent struct {
	Name   AgentName   `json:"name"`
	Status AgentStatus `json:"status"`
	Task   string      `json:"task"`
}

func (n AgentName) String() string { return string(n) }

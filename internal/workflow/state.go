package workflow

import "errors"

type State string

const (
	StateWelcome          State = "welcome"
	StateEvaluating       State = "evaluating"
	StateEvaluationResult State = "evaluation_result"
	StateOptimizing       State = "optimizing"
	StateComparison       State = "comparison"
)

// Processing states own the session's single outbound request.
func (s State) Processing() bool { return s == StateEvaluating || s == StateOptimizing }

type ReportSource string

const (
	ReportNone  ReportSource = ""
	ReportNew   ReportSource = "new"
	ReportSaved ReportSource = "saved"
)

type Affordance string

const (
	AffordEvaluate   Affordance = "evaluate"
	AffordOptimize   Affordance = "optimize"
	AffordSaveReport Affordance = "save_report"
	AffordSave       Affordance = "save"
	AffordDiscard    Affordance = "discard"
)

var (
	ErrBusy              = errors.New("workflow: a request is already in progress")
	ErrNoAsset           = errors.New("workflow: no asset selected")
	ErrInvalidTransition = errors.New("workflow: transition not allowed from current state")
)

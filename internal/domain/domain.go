package domain

import (
	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
)

type (
	Student        = roster.Student
	Alert          = roster.Alert
	LessonPlan     = planning.LessonPlan
	EvaluableAsset = planning.EvaluableAsset
	AssetContent   = planning.AssetContent
	Agent          = collab.Agent
	AgentName      = collab.AgentName
	ChatMessage    = collab.ChatMessage
	FeedbackEntry  = collab.FeedbackEntry
)

// Models lists every table the service migrates.
func Models() []any {
	return []any{
		&roster.Student{},
		&roster.Alert{},
		&planning.EvaluableAsset{},
		&planning.LessonPlan{},
	}
}

package workflow

import (
	"bytes"
	"encoding/json"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
)

type DiffStatus string

const (
	DiffAdded     DiffStatus = "added"
	DiffRemoved   DiffStatus = "removed"
	DiffModified  DiffStatus = "modified"
	DiffUnchanged DiffStatus = "unchanged"
)

type QuestionDiff struct {
	Number    int                `json:"number"`
	ID        string             `json:"id"`
	Status    DiffStatus         `json:"status"`
	Original  *planning.Question `json:"original,omitempty"`
	Optimized *planning.Question `json:"optimized,omitempty"`
}

// Compare pairs questions by id. Rows follow the union of ids: original order first,
// then ids that only exist in the optimized content.
func Compare(original, optimized planning.AssetContent) []QuestionDiff {
	ids := make([]string, 0, len(original.Questions)+len(optimized.Questions))
	seen := make(map[string]bool)
	for _, list := range [][]planning.Question{original.Questions, optimized.Questions} {
		for _, q := range list {
			if !seen[q.ID] {
				seen[q.ID] = true
				ids = append(ids, q.ID)
			}
		}
	}

	out := make([]QuestionDiff, 0, len(ids))
	for i, id := range ids {
		o := findQuestion(original.Questions, id)
		n := findQuestion(optimized.Questions, id)
		d := QuestionDiff{Number: i + 1, ID: id, Original: o, Optimized: n}
		switch {
		case o == nil:
			d.Status = DiffAdded
		case n == nil:
			d.Status = DiffRemoved
		case sameQuestion(*o, *n):
			d.Status = DiffUnchanged
		default:
			d.Status = DiffModified
		}
		out = append(out, d)
	}
	return out
}

func findQuestion(qs []planning.Question, id string) *planning.Question {
	for i := range qs {
		if qs[i].ID == id {
			q := qs[i]
			return &q
		}
	}
	return nil
}

// sameQuestion compares the serialized form, so an absent and an empty option list are equal.
func sameQuestion(a, b planning.Question) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

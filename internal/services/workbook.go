package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
)

const (
	summarySheet = "Agent Feedback"
	logSheet     = "Feedback Log"
)

type RosterRowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type RosterImportResult struct {
	Imported int               `json:"imported"`
	Skipped  []RosterRowIssue  `json:"skipped"`
	Students []*roster.Student `json:"-"`
}

// ParseRosterWorkbook reads the first sheet of an XLSX roster. Row 1 is a header;
// columns are ID, Name, Status, Progress, Average Score (optional), Last Activity (optional).
// Invalid rows are reported and skipped.
func ParseRosterWorkbook(r io.Reader) (*RosterImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidWorkbook)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidWorkbook, sheet, err)
	}

	res := &RosterImportResult{Skipped: []RosterRowIssue{}}
	seen := make(map[int]bool)
	for i, row := range rows {
		if i == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		st, reason := rosterRow(row)
		if reason == "" && seen[st.ID] {
			reason = "duplicate id " + strconv.Itoa(st.ID)
		}
		if reason != "" {
			res.Skipped = append(res.Skipped, RosterRowIssue{Row: i + 1, Reason: reason})
			continue
		}
		seen[st.ID] = true
		res.Students = append(res.Students, st)
	}
	return res, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func rosterRow(row []string) (*roster.Student, string) {
	id, err := strconv.Atoi(cell(row, 0))
	if err != nil || id <= 0 {
		return nil, "invalid id"
	}
	name := cell(row, 1)
	if name == "" {
		return nil, "missing name"
	}
	status := roster.StudentStatus(cell(row, 2))
	if !status.Valid() {
		return nil, fmt.Sprintf("invalid status %q", cell(row, 2))
	}
	progress, err := strconv.Atoi(cell(row, 3))
	if err != nil || progress < 0 || progress > 100 {
		return nil, "progress must be 0-100"
	}
	st := &roster.Student{ID: id, Name: name, Status: status, Progress: progress, LastActivity: cell(row, 5)}
	if raw := cell(row, 4); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 0 || score > 100 {
			return nil, "average score must be 0-100"
		}
		st.AverageScore = &score
	}
	return st, ""
}

// FeedbackWorkbook renders the per-agent summary and the raw log as two sheets.
func FeedbackWorkbook(summary []collab.AgentFeedbackSummary, entries []collab.FeedbackEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(logSheet); err != nil {
		return nil, err
	}

	rows := [][]interface{}{{"Agent", "Helpful", "Not Helpful", "Satisfaction %"}}
	for _, s := range summary {
		rows = append(rows, []interface{}{string(s.Name), s.Up, s.Down, s.Satisfaction})
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}

	rows = [][]interface{}{{"Timestamp", "Agent", "Feedback", "Message ID", "Response"}}
	for _, e := range entries {
		rows = append(rows, []interface{}{e.Timestamp, string(e.AgentName), string(e.Feedback), e.MessageID, e.ResponseText})
	}
	if err := writeRows(f, logSheet, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

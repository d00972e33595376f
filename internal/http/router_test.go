package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/data/repos/testutil"
	"github.com/yungbote/eduplanner-backend/internal/data/seed"
	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	httpH "github.com/yungbote/eduplanner-backend/internal/http/handlers"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
	"github.com/yungbote/eduplanner-backend/internal/services"
)

const evaluatorReport = "Looks good. Recommendation: simplify Q2."

// scriptedGemini answers text calls with evaluatorReport and JSON calls with a
// one-question quiz or a small lesson plan depending on the target.
type scriptedGemini struct {
	err error
}

func (g *scriptedGemini) GenerateText(context.Context, string, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return evaluatorReport, nil
}

func (g *scriptedGemini) GenerateJSON(_ context.Context, _, _ string, _ *gemini.Schema, out any) error {
	if g.err != nil {
		return g.err
	}
	switch v := out.(type) {
	case *planning.AssetContent:
		v.Questions = []planning.Question{{ID: "q1", Text: "Simplified", Type: "Short Answer"}}
	case *planning.LessonPlan:
		v.Title = "Graphs 101"
		v.Difficulty = planning.Difficulty("Beginner")
		v.LearningObjectives = []string{"Define a graph"}
		v.LessonStructure = []planning.LessonSection{{SectionTitle: "Intro", Content: "Vertices and edges", EstimatedTime: "10 min"}}
	default:
		return errors.New("unexpected target")
	}
	return nil
}

func (g *scriptedGemini) Enabled() bool { return g.err == nil }

type apiFixture struct {
	engine *gin.Engine
	course *seed.Data
}

func newAPI(t *testing.T, client gemini.Client) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	r := repos.New(db, log)
	course, err := seed.Default(time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := seed.Apply(ctx, log, db, r, course, false); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	store := kvstore.NewMemory()
	hub := realtime.NewSSEHub(log)
	notify := realtime.NewHubNotifier(hub)
	personas := agents.MustDefaultPersonas()
	feedback := services.NewFeedbackLog(log, store)
	gen := services.NewGenerationService(log, client, personas, feedback)
	lab := services.NewLessonLabService(log, gen, r.LessonPlans, store, nil, notify, services.LessonLabConfig{})
	t.Cleanup(lab.Close)
	chat := services.NewChatService(log, gen, feedback, lab, personas, notify)

	engine := NewRouter(RouterConfig{
		Log:               log,
		HealthHandler:     httpH.NewHealthHandler(db),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub),
		DashboardHandler:  httpH.NewDashboardHandler(services.NewDashboardService(log, r, gen, feedback, course)),
		EvaluationHandler: httpH.NewEvaluationHandler(services.NewEvaluationService(log, r.Assets, gen, notify)),
		LessonLabHandler:  httpH.NewLessonLabHandler(lab),
		ChatHandler:       httpH.NewChatHandler(chat, lab),
	})
	return &apiFixture{engine: engine, course: course}
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, status, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != code {
		t.Fatalf("code=%q want=%q", body.Error.Code, code)
	}
	return body
}

func TestHealthcheck(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})
	rec := f.do(t, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck=%d %q", rec.Code, rec.Body.String())
	}
}

func TestDashboardRoutes(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})

	rec := f.do(t, http.MethodGet, "/api/students?status=Struggling", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("students=%d %s", rec.Code, rec.Body.String())
	}
	list := decode[struct {
		Students []struct {
			ID     int    `json:"id"`
			Status string `json:"status"`
		} `json:"students"`
	}](t, rec)
	if len(list.Students) == 0 {
		t.Fatalf("expected struggling students")
	}
	for _, s := range list.Students {
		if s.Status != "Struggling" {
			t.Fatalf("unexpected status %q for %d", s.Status, s.ID)
		}
	}

	expectError(t, f.do(t, http.MethodGet, "/api/students?status=Bored", nil), http.StatusBadRequest, "invalid_status")
	expectError(t, f.do(t, http.MethodGet, "/api/students/999", nil), http.StatusNotFound, "student_not_found")
	expectError(t, f.do(t, http.MethodGet, "/api/students/abc", nil), http.StatusBadRequest, "invalid_student_id")
	expectError(t, f.do(t, http.MethodGet, "/api/alerts?level=Urgent", nil), http.StatusBadRequest, "invalid_level")
	expectError(t, f.do(t, http.MethodPost, "/api/students/101/analysis/horoscope", nil), http.StatusBadRequest, "invalid_analysis")

	rec = f.do(t, http.MethodGet, "/api/summary", nil)
	sum := decode[struct {
		StudentCount int            `json:"studentCount"`
		ByStatus     map[string]int `json:"byStatus"`
		Health       string         `json:"health"`
	}](t, rec)
	if sum.StudentCount != len(f.course.Students) || sum.Health == "" || len(sum.ByStatus) != 3 {
		t.Fatalf("summary=%+v", sum)
	}

	rec = f.do(t, http.MethodPost, "/api/students/101/analysis/feedback", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), evaluatorReport) {
		t.Fatalf("analysis=%d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/feedback/analysis.xlsx", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats") {
		t.Fatalf("xlsx=%d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("content-disposition=%q", rec.Header().Get("Content-Disposition"))
	}
}

func rosterUpload(t *testing.T, rows [][]interface{}) (*bytes.Buffer, string) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell: %v", err)
		}
		if err := wb.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("row: %v", err)
		}
	}
	xlsx, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roster.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(xlsx.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestRosterImport(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})
	body, contentType := rosterUpload(t, [][]interface{}{
		{"ID", "Name", "Status", "Progress", "Average Score", "Last Activity"},
		{201, "Nadia", "On Track", 70, 80, "1h ago"},
		{202, "Omar", "Sleepy", 50, "", ""},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/roster/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import=%d %s", rec.Code, rec.Body.String())
	}
	res := decode[services.RosterImportResult](t, rec)
	if res.Imported != 1 || len(res.Skipped) != 1 {
		t.Fatalf("import result=%+v", res)
	}

	rec = f.do(t, http.MethodGet, "/api/summary", nil)
	if got := decode[struct {
		StudentCount int `json:"studentCount"`
	}](t, rec); got.StudentCount != 1 {
		t.Fatalf("roster not replaced: %d", got.StudentCount)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/roster/import", strings.NewReader(""))
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	expectError(t, rec, http.StatusBadRequest, "missing_file")
}

func TestEvaluationWorkflowRoutes(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})

	rec := f.do(t, http.MethodPost, "/api/workflow/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create=%d", rec.Code)
	}
	id := decode[struct {
		SessionID string `json:"sessionId"`
	}](t, rec).SessionID

	expectError(t, f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/discard", nil), http.StatusConflict, "invalid_transition")
	expectError(t, f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/select", map[string]string{"assetId": "nope"}), http.StatusNotFound, "asset_not_found")

	type snapshot struct {
		State               string   `json:"state"`
		Report              string   `json:"report"`
		OptimizeRecommended bool     `json:"optimizeRecommended"`
		Affordances         []string `json:"affordances"`
	}
	rec = f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/select", map[string]string{"assetId": "quiz-001"})
	if snap := decode[snapshot](t, rec); rec.Code != http.StatusOK || snap.State != "welcome" {
		t.Fatalf("select=%d %+v", rec.Code, snap)
	}
	rec = f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/evaluate", nil)
	snap := decode[snapshot](t, rec)
	if snap.State != "evaluation_result" || snap.Report != evaluatorReport || !snap.OptimizeRecommended {
		t.Fatalf("evaluate=%+v", snap)
	}
	rec = f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/optimize", nil)
	if snap := decode[snapshot](t, rec); snap.State != "comparison" {
		t.Fatalf("optimize=%+v", snap)
	}
	rec = f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/discard", nil)
	if snap := decode[snapshot](t, rec); snap.State != "evaluation_result" {
		t.Fatalf("discard=%+v", snap)
	}

	rec = f.do(t, http.MethodGet, "/api/assets/quiz-001", nil)
	asset := decode[struct {
		Asset planning.EvaluableAsset `json:"asset"`
	}](t, rec).Asset
	if len(asset.Content.Questions) != 3 {
		t.Fatalf("discard changed stored content: %d questions", len(asset.Content.Questions))
	}

	expectError(t, f.do(t, http.MethodGet, "/api/assets?filter=Poem", nil), http.StatusBadRequest, "invalid_filter")
	rec = f.do(t, http.MethodDelete, "/api/workflow/sessions/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close=%d", rec.Code)
	}
	expectError(t, f.do(t, http.MethodGet, "/api/workflow/sessions/"+id, nil), http.StatusNotFound, "session_not_found")
}

func TestEvaluationFailureStaysInSnapshot(t *testing.T) {
	f := newAPI(t, &scriptedGemini{err: gemini.ErrInvalidCredential})
	id := decode[struct {
		SessionID string `json:"sessionId"`
	}](t, f.do(t, http.MethodPost, "/api/workflow/sessions", nil)).SessionID
	f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/select", map[string]string{"assetId": "quiz-001"})

	rec := f.do(t, http.MethodPost, "/api/workflow/sessions/"+id+"/evaluate", nil)
	snap := decode[struct {
		State string `json:"state"`
		Error string `json:"error"`
	}](t, rec)
	if rec.Code != http.StatusOK || snap.State != "welcome" || !strings.Contains(snap.Error, "API key is invalid") {
		t.Fatalf("evaluate failure=%d %+v", rec.Code, snap)
	}
}

func TestChatRoutes(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})

	rec := f.do(t, http.MethodPost, "/api/chat/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create=%d", rec.Code)
	}
	id := decode[struct {
		SessionID string `json:"sessionId"`
	}](t, rec).SessionID

	type msgBody struct {
		Message struct {
			ID       string  `json:"id"`
			Sender   string  `json:"sender"`
			Kind     string  `json:"kind"`
			Feedback *string `json:"feedback"`
		} `json:"message"`
	}
	rec = f.do(t, http.MethodPost, "/api/chat/sessions/"+id+"/messages", map[string]string{"text": "Agent Evaluator, please assess the Merge Sort Quiz"})
	reply := decode[msgBody](t, rec)
	if rec.Code != http.StatusOK || reply.Message.Sender != "Evaluator" || reply.Message.Kind != "action_prompt" {
		t.Fatalf("submit=%d %+v", rec.Code, reply)
	}

	target := "/api/chat/sessions/" + id + "/messages/" + reply.Message.ID + "/feedback"
	rec = f.do(t, http.MethodPost, target, map[string]string{"rating": "up"})
	if got := decode[msgBody](t, rec); got.Message.Feedback == nil || *got.Message.Feedback != "up" {
		t.Fatalf("feedback=%s", rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, target, map[string]string{"rating": "down"})
	if got := decode[msgBody](t, rec); *got.Message.Feedback != "up" {
		t.Fatalf("second rating overwrote the first: %s", rec.Body.String())
	}
	expectError(t, f.do(t, http.MethodPost, target, map[string]string{"rating": "meh"}), http.StatusBadRequest, "invalid_rating")

	rec = f.do(t, http.MethodGet, "/api/feedback/analysis", nil)
	analysis := decode[struct {
		Agents []struct {
			Name string `json:"name"`
			Up   int    `json:"up"`
		} `json:"agents"`
	}](t, rec)
	found := false
	for _, a := range analysis.Agents {
		if a.Name == "Evaluator" && a.Up == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("feedback analysis=%+v", analysis)
	}

	expectError(t, f.do(t, http.MethodPost, "/api/chat/sessions/"+id+"/messages", map[string]string{"text": "   "}), http.StatusBadRequest, "empty_prompt")
	expectError(t, f.do(t, http.MethodPost, "/api/chat/sessions/missing/messages", map[string]string{"text": "hi"}), http.StatusNotFound, "session_not_found")

	rec = f.do(t, http.MethodPost, "/api/lesson-plans/lp-mock-12345/review", map[string]string{"sessionId": id})
	if got := decode[msgBody](t, rec); rec.Code != http.StatusOK || got.Message.Sender != "Evaluator" {
		t.Fatalf("review=%d %s", rec.Code, rec.Body.String())
	}
}

func TestLessonLabRoutes(t *testing.T) {
	f := newAPI(t, &scriptedGemini{})
	const planID = "lp-mock-12345"

	rec := f.do(t, http.MethodPut, "/api/lesson-plans/"+planID+"/notes", map[string]string{"notes": "Bring props"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save notes=%d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/lesson-plans/"+planID+"/notes", nil)
	notes := decode[struct {
		Notes string `json:"notes"`
		Found bool   `json:"found"`
	}](t, rec)
	if !notes.Found || notes.Notes != "Bring props" {
		t.Fatalf("load notes=%+v", notes)
	}

	rec = f.do(t, http.MethodPut, "/api/lesson-plans/"+planID+"/notes?autosave=true", map[string]string{"notes": "draft"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("autosave=%d", rec.Code)
	}
	if rec = f.do(t, http.MethodPost, "/api/lesson-plans/"+planID+"/notes/flush", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("flush=%d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/lesson-plans/"+planID+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export=%d %s", rec.Code, rec.Body.String())
	}
	disp := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disp, "attachment;") || !strings.Contains(disp, "lesson-plan-") {
		t.Fatalf("content-disposition=%q", disp)
	}
	exported := decode[planning.LessonPlan](t, rec)
	if exported.ID != planID || exported.ProfessorNotes != "draft" {
		t.Fatalf("export=%+v", exported)
	}

	rec = f.do(t, http.MethodPost, "/api/lesson-plans/"+planID+"/export", map[string]string{"notes": "unsaved edit"})
	if got := decode[planning.LessonPlan](t, rec); got.ProfessorNotes != "unsaved edit" {
		t.Fatalf("export with current notes=%q", got.ProfessorNotes)
	}

	rec = f.do(t, http.MethodPost, "/api/lesson-plans", map[string]string{"topic": "Graphs", "objectives": "Basics", "difficulty": "Beginner"})
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), "Graphs 101") {
		t.Fatalf("generate=%d %s", rec.Code, rec.Body.String())
	}
	expectError(t, f.do(t, http.MethodPost, "/api/lesson-plans", map[string]string{"topic": "Graphs", "objectives": "Basics", "difficulty": "Expert"}), http.StatusBadRequest, "invalid_request")
	expectError(t, f.do(t, http.MethodPost, "/api/lesson-plans/"+planID+"/refine", map[string]string{"feedback": ""}), http.StatusBadRequest, "empty_prompt")
	expectError(t, f.do(t, http.MethodGet, "/api/lesson-plans/lp-missing", nil), http.StatusNotFound, "lesson_plan_not_found")
	expectError(t, f.do(t, http.MethodGet, "/api/handoffs/unknown-token", nil), http.StatusNotFound, "handoff_not_found")
}

func TestGenerationFailureIsBadGateway(t *testing.T) {
	f := newAPI(t, &scriptedGemini{err: gemini.ErrInvalidCredential})
	rec := f.do(t, http.MethodPost, "/api/lesson-plans", map[string]string{"topic": "Graphs", "objectives": "Basics", "difficulty": "Beginner"})
	body := expectError(t, rec, http.StatusBadGateway, "generation_failed")
	if !strings.Contains(body.Error.Message, "API key is invalid") {
		t.Fatalf("message=%q", body.Error.Message)
	}
}

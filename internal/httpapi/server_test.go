package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/jobtracker/internal/blob"
	"github.com/example/jobtracker/internal/config"
	"github.com/example/jobtracker/internal/model"
	"github.com/example/jobtracker/internal/store"
)

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return s.out, s.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Config{
		DefaultOwner:   "demo",
		GmailCredsPath: filepath.Join(dir, "credentials.json"),
		GmailTokenPath: filepath.Join(dir, "token.json"),
		GeminiModel:    "gemini-1.5-flash",
		SyncMaxResults: 50,
		SyncMaxAICalls: 10,
	}
	return NewServer(st, blob.LocalFS{Root: dir}, nil, cfg)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return v
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t).Router()
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("api health status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "healthy" || body["database"] != "connected" {
		t.Errorf("body = %v", body)
	}
}

func TestApplicationEndpoints(t *testing.T) {
	h := newTestServer(t).Router()

	// validation
	rec := doJSON(t, h, http.MethodPost, "/api/applications/", map[string]any{"company": "Acme"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without position = %d, want 400", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/applications/", map[string]any{
		"company": "Acme", "position": "SWE", "status": "Ghosted",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create with bad status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/applications/", map[string]any{
		"company":  "Acme",
		"position": "Software Engineer",
		"location": "Remote",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	created := decode[model.Application](t, rec)
	if created.Status != model.StatusApplied {
		t.Errorf("default status = %s, want %s", created.Status, model.StatusApplied)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/applications/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	apps := decode[[]model.Application](t, rec)
	if len(apps) != 1 || apps[0].ID != created.ID {
		t.Errorf("list = %v", apps)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/applications/"+created.ID, map[string]any{
		"status": "Interview",
		"notes":  "onsite scheduled",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d (body %s)", rec.Code, rec.Body.String())
	}
	updated := decode[model.Application](t, rec)
	if updated.Status != model.StatusInterview || updated.Notes != "onsite scheduled" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Location != "Remote" {
		t.Errorf("location lost on patch: %+v", updated)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/applications/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/applications/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/api/applications/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", rec.Code)
	}
}

func TestOwnerHeaderIsolation(t *testing.T) {
	h := newTestServer(t).Router()

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]any{"company": "Acme", "position": "SWE"})
	req := httptest.NewRequest(http.MethodPost, "/api/applications/", &buf)
	req.Header.Set("X-Owner", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	// default owner sees nothing
	rec = doJSON(t, h, http.MethodGet, "/api/applications/", nil)
	if apps := decode[[]model.Application](t, rec); len(apps) != 0 {
		t.Errorf("default owner sees %d applications, want 0", len(apps))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/applications/", nil)
	req.Header.Set("X-Owner", "alice")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if apps := decode[[]model.Application](t, rec); len(apps) != 1 {
		t.Errorf("alice sees %d applications, want 1", len(apps))
	}
}

func TestTaskCompletionAwardsPoints(t *testing.T) {
	h := newTestServer(t).Router()

	rec := doJSON(t, h, http.MethodPost, "/api/tasks/", map[string]any{
		"title":    "Apply to Acme",
		"category": "APPLICATION",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task = %d (body %s)", rec.Code, rec.Body.String())
	}
	task := decode[model.Task](t, rec)
	if task.Points != 10 {
		t.Errorf("points = %d, want 10", task.Points)
	}
	if task.Priority != "medium" {
		t.Errorf("priority = %q, want default medium", task.Priority)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/tasks/"+task.ID, map[string]any{"completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d (body %s)", rec.Code, rec.Body.String())
	}
	done := decode[model.Task](t, rec)
	if !done.Completed || done.CompletedAt == nil {
		t.Errorf("task after completion = %+v", done)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/stats", nil)
	stats := decode[map[string]any](t, rec)
	if stats["totalPoints"] != float64(10) {
		t.Errorf("totalPoints = %v, want 10", stats["totalPoints"])
	}
	if stats["currentStreak"] != float64(1) {
		t.Errorf("currentStreak = %v, want 1", stats["currentStreak"])
	}
	if stats["completedTasks"] != float64(1) {
		t.Errorf("completedTasks = %v, want 1", stats["completedTasks"])
	}

	// first completion unlocks first_task
	rec = doJSON(t, h, http.MethodGet, "/api/achievements", nil)
	achievements := decode[[]map[string]any](t, rec)
	found := false
	for _, a := range achievements {
		if a["achievementId"] == "first_task" {
			found = true
		}
	}
	if !found {
		t.Errorf("achievements = %v, want first_task", achievements)
	}

	// un-completing refunds the points
	rec = doJSON(t, h, http.MethodPut, "/api/tasks/"+task.ID, map[string]any{"completed": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("uncomplete = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/stats", nil)
	stats = decode[map[string]any](t, rec)
	if stats["totalPoints"] != float64(0) {
		t.Errorf("totalPoints after refund = %v, want 0", stats["totalPoints"])
	}
}

func TestDeleteCompletedTaskRefunds(t *testing.T) {
	h := newTestServer(t).Router()

	rec := doJSON(t, h, http.MethodPost, "/api/tasks/", map[string]any{
		"title":    "Mock interview",
		"category": "INTERVIEW_PREP",
	})
	task := decode[model.Task](t, rec)

	doJSON(t, h, http.MethodPut, "/api/tasks/"+task.ID, map[string]any{"completed": true})

	rec = doJSON(t, h, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/stats", nil)
	stats := decode[map[string]any](t, rec)
	if stats["totalPoints"] != float64(0) {
		t.Errorf("totalPoints = %v, want 0 after deleting the completed task", stats["totalPoints"])
	}
	if stats["totalTasks"] != float64(0) {
		t.Errorf("totalTasks = %v, want 0", stats["totalTasks"])
	}
}

func TestReset(t *testing.T) {
	h := newTestServer(t).Router()

	doJSON(t, h, http.MethodPost, "/api/applications/", map[string]any{"company": "Acme", "position": "SWE"})
	doJSON(t, h, http.MethodPost, "/api/tasks/", map[string]any{"title": "x", "category": "OTHER"})

	rec := doJSON(t, h, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/applications/", nil)
	if apps := decode[[]model.Application](t, rec); len(apps) != 0 {
		t.Errorf("%d applications after reset", len(apps))
	}
	rec = doJSON(t, h, http.MethodGet, "/api/tasks/", nil)
	if tasks := decode[[]model.Task](t, rec); len(tasks) != 0 {
		t.Errorf("%d tasks after reset", len(tasks))
	}
}

func TestAIEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/ai/status", nil)
	status := decode[map[string]any](t, rec)
	if status["available"] != false {
		t.Errorf("available = %v, want false", status["available"])
	}

	rec = doJSON(t, h, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hi"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("chat without generator = %d, want 503", rec.Code)
	}

	srv.Generator = stubGenerator{out: "Focus on following up with Acme."}
	rec = doJSON(t, h, http.MethodPost, "/api/ai/chat", map[string]any{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("chat with empty message = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/ai/chat", map[string]any{"message": "what next?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d (body %s)", rec.Code, rec.Body.String())
	}
	reply := decode[map[string]any](t, rec)
	if reply["reply"] != "Focus on following up with Acme." {
		t.Errorf("reply = %v", reply)
	}

	srv.Generator = stubGenerator{err: errors.New("model offline")}
	rec = doJSON(t, h, http.MethodPost, "/api/ai/chat", map[string]any{"message": "what next?"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("chat with failing generator = %d, want 502", rec.Code)
	}
}

func TestSyncEndpoints(t *testing.T) {
	h := newTestServer(t).Router()

	rec := doJSON(t, h, http.MethodGet, "/api/email/sync-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync-status = %d", rec.Code)
	}
	status := decode[map[string]any](t, rec)
	gmail, ok := status["gmail"].(map[string]any)
	if !ok || gmail["ready"] != false {
		t.Errorf("gmail status = %v, want not ready", status["gmail"])
	}
	if status["aiAvailable"] != false {
		t.Errorf("aiAvailable = %v, want false", status["aiAvailable"])
	}

	// no credentials on disk: the sync fails as a setup error and is logged
	rec = doJSON(t, h, http.MethodPost, "/api/email/sync", map[string]any{"daysBack": 7})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sync without credentials = %d, want 503", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/email/sync-status", nil)
	status = decode[map[string]any](t, rec)
	runs, ok := status["recentRuns"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("recentRuns = %v, want one error run", status["recentRuns"])
	}
	run, _ := runs[0].(map[string]any)
	if run["status"] != "error" {
		t.Errorf("run status = %v, want error", run["status"])
	}
}

func TestSyncConflictWhileRunning(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Router()

	// another sync for the same owner is in flight
	if !srv.beginSync("demo") {
		t.Fatal("beginSync failed on a fresh server")
	}
	defer srv.endSync("demo")

	rec := doJSON(t, h, http.MethodPost, "/api/email/sync", map[string]any{"daysBack": 7})
	if rec.Code != http.StatusConflict {
		t.Errorf("sync while running = %d, want 409", rec.Code)
	}

	// a different owner is not blocked (still 503 here, gmail is unconfigured)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]any{"daysBack": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/email/sync", &buf)
	req.Header.Set("X-Owner", "alice")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusConflict {
		t.Error("sync for another owner was blocked")
	}

	// the lock releases
	srv.endSync("demo")
	rec = doJSON(t, h, http.MethodPost, "/api/email/sync", map[string]any{"daysBack": 7})
	if rec.Code == http.StatusConflict {
		t.Error("sync still blocked after the lock released")
	}
}

func uploadResume(t *testing.T, h http.Handler, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestResumeEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/resumes/active", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("active with none uploaded = %d, want 404", rec.Code)
	}

	rec = uploadResume(t, h, "/api/resumes/", "resume.txt", "Jane Doe\nSoftware Engineer\nGo, SQL")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d (body %s)", rec.Code, rec.Body.String())
	}
	first := decode[model.Resume](t, rec)
	if !first.Active {
		t.Error("first resume should be active")
	}
	if first.Filename != "resume.txt" || first.SizeBytes == 0 {
		t.Errorf("resume = %+v", first)
	}

	rec = uploadResume(t, h, "/api/resumes/", "resume-v2.txt", "Jane Doe\nStaff Engineer")
	second := decode[model.Resume](t, rec)
	if second.Active {
		t.Error("second resume should not steal the active flag")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/resumes/", nil)
	if resumes := decode[[]model.Resume](t, rec); len(resumes) != 2 {
		t.Errorf("list = %d resumes, want 2", len(resumes))
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/resumes/%s/activate", second.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/resumes/active", nil)
	if active := decode[model.Resume](t, rec); active.ID != second.ID {
		t.Errorf("active = %s, want %s", active.ID, second.ID)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/resumes/"+first.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download = %d", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, "Jane Doe") {
		t.Errorf("downloaded body = %q", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "resume.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/resumes/"+first.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/resumes/"+first.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("download deleted = %d, want 404", rec.Code)
	}

	// ATS analysis needs a generator
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/resumes/%s/analyze-ats", second.ID), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("analyze without generator = %d, want 503", rec.Code)
	}
	srv.Generator = stubGenerator{out: "```json\n{\"score\": 72, \"strengths\": [], \"weaknesses\": [], \"suggestions\": []}\n```"}
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/resumes/%s/analyze-ats", second.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d (body %s)", rec.Code, rec.Body.String())
	}
	verdict := decode[map[string]any](t, rec)
	if verdict["score"] != float64(72) {
		t.Errorf("score = %v, want 72", verdict["score"])
	}
}

func TestExtractTextEndpoint(t *testing.T) {
	h := newTestServer(t).Router()

	rec := uploadResume(t, h, "/api/resumes/extract-text", "resume.txt", "plain text resume")
	if rec.Code != http.StatusOK {
		t.Fatalf("extract = %d (body %s)", rec.Code, rec.Body.String())
	}
	out := decode[map[string]any](t, rec)
	if out["text"] != "plain text resume" {
		t.Errorf("text = %v", out["text"])
	}

	rec = uploadResume(t, h, "/api/resumes/extract-text", "resume.pdf", "%PDF-1.4 ...")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("extract pdf = %d, want 422", rec.Code)
	}
}

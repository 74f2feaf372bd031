package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/data"
	"github.com/ncobase/docport/export"
	"github.com/ncobase/docport/export/dispatch"
	"github.com/ncobase/docport/export/pdf"
	"github.com/ncobase/docport/export/pipeline"
	"github.com/ncobase/docport/export/render"
	"github.com/ncobase/docport/export/repository"
	"github.com/ncobase/docport/export/storage"
)

const testAPIKey = "test-secret"

// noopDispatcher leaves jobs pending so tests can observe incomplete states.
type noopDispatcher struct{}

func (noopDispatcher) Start(ctx context.Context) error                  { return nil }
func (noopDispatcher) Stop(ctx context.Context)                         {}
func (noopDispatcher) Dispatch(ctx context.Context, jobID string) error { return nil }

func newTestRouter(t *testing.T, inline bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	source := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite3", source)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := data.Migrate(ctx, db, repository.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fs, err := storage.NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}

	repo := repository.New(db)
	converter := pdf.New(&config.PDF{Binaries: []string{"no-such-engine-binary"}})
	pl := pipeline.New(repo, render.NewSet(), converter, storage.NewPlacement(fs), 24)

	var dispatcher dispatch.Dispatcher = noopDispatcher{}
	if inline {
		dispatcher = dispatch.NewInline(pl.Run)
	}

	svc := export.NewService(repo, dispatcher, &config.Export{
		EstimateSeconds:  30,
		AllowedTemplates: []string{render.TemplateSummary, render.TemplateFullReport},
		DefaultTemplate:  render.TemplateSummary,
	})

	r := gin.New()
	Register(r, NewExportHandler(svc), &config.Auth{APIKey: testAPIKey})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const submitBody = `{
	"title": "Handler Report",
	"summary": "End to end.",
	"session_id": "s1",
	"sections": [{"heading": "One", "body": "Body."}],
	"tables": [{"name": "data", "columns": ["k", "v"], "rows": [["a", 1], {"k": "b", "v": 2}]}]
}`

func submitJob(t *testing.T, r *gin.Engine) string {
	t.Helper()

	w := doRequest(t, r, http.MethodPost, "/api/v1/export", submitBody, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit: expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var receipt export.Receipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.JobID == "" || receipt.Status != "pending" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.EstimatedSeconds != 30 {
		t.Fatalf("unexpected estimate: %d", receipt.EstimatedSeconds)
	}
	return receipt.JobID
}

func TestSubmitPollDownloadFlow(t *testing.T) {
	r := newTestRouter(t, true)

	jobID := submitJob(t, r)

	w := doRequest(t, r, http.MethodGet, "/api/v1/status/"+jobID, "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var status export.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != "complete" || status.Progress != 100 {
		t.Fatalf("job not complete: %+v", status)
	}
	if status.Download == nil {
		t.Fatal("complete job missing download ref")
	}
	if len(status.Download.Code) != repository.DownloadCodeLength {
		t.Fatalf("unexpected code %q", status.Download.Code)
	}
	u, err := url.Parse(status.Download.URL)
	if err != nil {
		t.Fatalf("parse download url: %v", err)
	}
	if u.Query().Get("code") != status.Download.Code {
		t.Fatalf("url code mismatch: %s", status.Download.URL)
	}

	// The code alone authorizes the download; no API key needed.
	w = doRequest(t, r, http.MethodGet, status.Download.URL, "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, jobID+"_export.zip") {
		t.Fatalf("unexpected disposition %q", disposition)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty download body")
	}
}

func TestDownloadWrongCode(t *testing.T) {
	r := newTestRouter(t, true)

	jobID := submitJob(t, r)

	w := doRequest(t, r, http.MethodGet, "/api/v1/download/"+jobID+"?code=wrongwro", "", true)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/download/"+jobID, "", true)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing code, got %d", w.Code)
	}
}

func TestDownloadNotReady(t *testing.T) {
	r := newTestRouter(t, false)

	jobID := submitJob(t, r)

	w := doRequest(t, r, http.MethodGet, "/api/v1/download/"+jobID+"?code=whatever", "", true)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending job, got %d", w.Code)
	}
}

func TestDownloadUnknownJob(t *testing.T) {
	r := newTestRouter(t, true)

	w := doRequest(t, r, http.MethodGet, "/api/v1/download/nope?code=whatever", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	r := newTestRouter(t, true)

	w := doRequest(t, r, http.MethodGet, "/api/v1/status/nope", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSubmitValidation(t *testing.T) {
	r := newTestRouter(t, true)

	w := doRequest(t, r, http.MethodPost, "/api/v1/export", `{"summary":"no title"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", w.Code)
	}

	body := `{"title":"x","session_id":"s1","options":{"template":"nope"}}`
	w = doRequest(t, r, http.MethodPost, "/api/v1/export", body, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disallowed template, got %d", w.Code)
	}
}

func TestDeleteJob(t *testing.T) {
	r := newTestRouter(t, true)

	jobID := submitJob(t, r)

	w := doRequest(t, r, http.MethodDelete, "/api/v1/jobs/"+jobID, "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/status/"+jobID, "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodDelete, "/api/v1/jobs/"+jobID, "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	r := newTestRouter(t, true)

	w := doRequest(t, r, http.MethodPost, "/api/v1/export", submitBody, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/export", strings.NewReader(submitBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected bearer token to authenticate, got %d", w.Code)
	}
}

func TestHealthNeedsNoKey(t *testing.T) {
	r := newTestRouter(t, true)

	w := doRequest(t, r, http.MethodGet, "/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("unexpected health body: %s", w.Body.String())
	}
}

func TestStats(t *testing.T) {
	r := newTestRouter(t, true)

	submitJob(t, r)

	w := doRequest(t, r, http.MethodGet, "/api/v1/stats", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", w.Code)
	}
	var stats map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["complete"] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

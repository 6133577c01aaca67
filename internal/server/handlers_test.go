package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/app/apptest"
	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/llm/llmtest"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
)

type mockInbox struct {
	dirs []string
}

func (m *mockInbox) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func newTestServer(t *testing.T, cfg *config.Config, inbox InboxService) (*app.Components, http.Handler) {
	t.Helper()
	if cfg == nil {
		cfg = apptest.Config(t.TempDir())
	}
	c := apptest.Open(t, cfg)
	return c, NewServer(c, inbox, nil).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleIndexAndMatch(t *testing.T) {
	_, h := newTestServer(t, nil, nil)

	resumes := map[string]string{
		"alice": "Senior Go engineer, distributed systems, Kubernetes",
		"bob":   "Pastry chef with ten years in French bakeries",
	}
	for id, text := range resumes {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: id, Text: text})
		if rec.Code != http.StatusCreated {
			t.Fatalf("index %s: status = %d, body %s", id, rec.Code, rec.Body.String())
		}
		var resp models.IndexResponse
		decodeBody(t, rec, &resp)
		if resp.ResumeID != id || resp.Warning != "" {
			t.Errorf("index %s: got %+v", id, resp)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/api/v1/matches", models.MatchQuery{
		JobDescription: resumes["alice"],
		K:           2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("match status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.MatchResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 2 || len(resp.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %+v", resp)
	}
	if resp.Matches[0].ResumeID != "alice" || resp.Matches[0].Rank != 1 {
		t.Errorf("top match = %+v, want alice at rank 1", resp.Matches[0])
	}
}

func TestHandleIndexResume_Errors(t *testing.T) {
	_, h := newTestServer(t, nil, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: "r1", Text: "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank text: status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: "r1", Text: "Go developer"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first insert: status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: "r1", Text: "Go developer again"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate id: status = %d, want 409", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid body: status = %d, want 400", bad.Code)
	}
}

func TestHandleMatch_Errors(t *testing.T) {
	_, h := newTestServer(t, nil, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/matches", models.MatchQuery{JobDescription: "Go engineer"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty index: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/matches", models.MatchQuery{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete query: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/matches", models.MatchQuery{JobDescription: "Go", K: -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative k: status = %d, want 400", rec.Code)
	}
}

func TestHandleProcessPath(t *testing.T) {
	cfg := apptest.Config(t.TempDir())
	if err := os.MkdirAll(cfg.Storage.MediaRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Storage.MediaRoot, "cv.txt"), []byte("Data engineer, Spark, Airflow"), 0644); err != nil {
		t.Fatal(err)
	}
	c, h := newTestServer(t, cfg, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/resumes/process-path", models.ProcessPathInput{Path: "cv.txt", ID: "cv-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	stored, err := c.Storage.GetResume(t.Context(), "cv-1")
	if err != nil {
		t.Fatalf("GetResume: %v", err)
	}
	if stored.FilePath != filepath.Join(cfg.Storage.MediaRoot, "cv.txt") {
		t.Errorf("FilePath = %q", stored.FilePath)
	}

	for _, p := range []string{"", "../outside.txt", "/etc/passwd", "."} {
		rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes/process-path", models.ProcessPathInput{Path: p})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %q: status = %d, want 400", p, rec.Code)
		}
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes/process-path", models.ProcessPathInput{Path: "missing.pdf"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d, want 404", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, cfg.Storage.MediaRoot) {
		t.Errorf("missing file response leaks server path: %s", body)
	}

	if err := os.WriteFile(filepath.Join(cfg.Storage.MediaRoot, "cv.xlsx"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes/process-path", models.ProcessPathInput{Path: "cv.xlsx"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported extension: status = %d, want 400", rec.Code)
	}

	if err := os.Mkdir(filepath.Join(cfg.Storage.MediaRoot, "folder"), 0755); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/v1/resumes/process-path", models.ProcessPathInput{Path: "folder"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("directory: status = %d, want 400", rec.Code)
	}
}

func TestHandleListAndGetResumes(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	for i := range 3 {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{
			ID:   fmt.Sprintf("r%d", i),
			Text: fmt.Sprintf("resume number %d", i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("index: status = %d", rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/resumes?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Resumes []models.Resume `json:"resumes"`
		Total   int             `json:"total"`
	}
	decodeBody(t, rec, &list)
	if list.Total != 3 || len(list.Resumes) != 2 {
		t.Errorf("list = %d resumes, total %d", len(list.Resumes), list.Total)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/resumes?offset=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/resumes/r1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var resume models.Resume
	decodeBody(t, rec, &resume)
	if resume.ID != "r1" || resume.Content != "resume number 1" {
		t.Errorf("resume = %+v", resume)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/resumes/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

func TestHandleInsights(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, h := newTestServer(t, nil, nil)
		rec := doJSON(t, h, http.MethodGet, "/api/v1/resumes/r1/insights", nil)
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("status = %d, want 501", rec.Code)
		}
	})

	t.Run("summary", func(t *testing.T) {
		srv := llmtest.NewServer(t, llmtest.Static("Name: Jane Doe\nYears of Experience: 7\nKey Skills: Go, SQL"))
		cfg := apptest.Config(t.TempDir())
		cfg.LLM.BaseURL = srv.BaseURL()
		cfg.LLM.Model = "test-model"
		_, h := newTestServer(t, cfg, nil)

		rec := doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: "jane", Text: "Jane Doe, Go engineer since 2018"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("index status = %d", rec.Code)
		}
		rec = doJSON(t, h, http.MethodGet, "/api/v1/resumes/jane/insights", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("insights status = %d, body %s", rec.Code, rec.Body.String())
		}
		var fields []models.InsightField
		decodeBody(t, rec, &fields)
		if len(fields) == 0 || fields[0].Value != "Jane Doe" {
			t.Errorf("fields = %+v", fields)
		}
		if len(srv.Requests()) != 1 {
			t.Errorf("llm requests = %d, want 1", len(srv.Requests()))
		}
	})
}

func TestHandleStatusAndMetrics(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	doJSON(t, h, http.MethodPost, "/api/v1/resumes", models.ResumeInput{ID: "a", Text: "Go"})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status models.StatusResponse
	decodeBody(t, rec, &status)
	if status.IndexSize != 1 || status.LedgerLen != 1 {
		t.Errorf("status = %+v", status)
	}

	rec = doJSON(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "resumatch_") {
		t.Error("expected resumatch metrics in /metrics output")
	}
}

func TestHandleInboxList(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/inbox", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("no inbox: status = %d, want 501", rec.Code)
	}

	_, h = newTestServer(t, nil, &mockInbox{dirs: []string{"/a", "/b"}})
	rec = doJSON(t, h, http.MethodGet, "/api/v1/inbox", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Directories []string `json:"directories"`
	}
	decodeBody(t, rec, &body)
	if len(body.Directories) != 2 {
		t.Errorf("directories = %v", body.Directories)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrIncompleteQuery, http.StatusBadRequest},
		{vector.ErrInvalidK, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", matcher.ErrEmptyText), http.StatusUnprocessableEntity},
		{extract.ErrUnsupportedFormat, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", indexer.ErrFileNotFound), http.StatusNotFound},
		{indexer.ErrNotRegularFile, http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{vector.ErrEmptyIndex, http.StatusNotFound},
		{indexer.ErrDuplicateID, http.StatusConflict},
		{fmt.Errorf("%w: %w", matcher.ErrEmbedding, errors.New("timeout")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

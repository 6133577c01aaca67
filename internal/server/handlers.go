package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/insights"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 10 << 20
)

func (s *Server) handleProcessPath(w http.ResponseWriter, r *http.Request) {
	var input models.ProcessPathInput
	if !s.decode(w, r, &input) {
		return
	}
	path, ok := s.mediaPath(input.Path)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "path must be a file inside the media root")
		return
	}
	s.logger.Debug("process path request", zap.String("path", path), zap.String("resume_id", input.ID))
	rec, err := s.components.Indexer.IndexFile(r.Context(), path, input.ID)
	s.respondIndexed(w, rec, err)
}

func (s *Server) handleIndexResume(w http.ResponseWriter, r *http.Request) {
	var input models.ResumeInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("index resume request", zap.String("resume_id", input.ID), zap.Int("chars", len(input.Text)))
	rec, err := s.components.Indexer.IndexText(r.Context(), input.ID, input.Text, "")
	s.respondIndexed(w, rec, err)
}

func (s *Server) respondIndexed(w http.ResponseWriter, rec matcher.Record, err error) {
	resp := models.IndexResponse{Message: "resume indexed", ResumeID: rec.ExternalID, Position: rec.Position}
	if errors.Is(err, matcher.ErrPersistence) {
		resp.Warning = err.Error()
		s.respondJSON(w, http.StatusCreated, resp)
		return
	}
	if err != nil {
		s.respondErr(w, "index resume", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxListLimit)
	resumes, err := s.components.Storage.ListResumes(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, "list resumes", err)
		return
	}
	total, err := s.components.Storage.CountResumes(r.Context())
	if err != nil {
		s.respondErr(w, "count resumes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"resumes": resumes, "total": total})
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.components.Storage.GetResume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get resume", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resume)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.components.Insights == nil {
		s.respondError(w, http.StatusNotImplemented, "insights require an llm to be configured")
		return
	}
	resume, err := s.components.Storage.GetResume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get resume", err)
		return
	}
	summary, err := s.components.Insights.Extract(r.Context(), resume.Content)
	if err != nil {
		if errors.Is(err, insights.ErrEmptyResume) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("insights failed", zap.String("resume_id", resume.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "insights failed: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary.Fields())
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var query models.MatchQuery
	if !s.decode(w, r, &query) {
		return
	}
	resp, err := s.components.Search.Match(r.Context(), &query)
	if err != nil {
		s.respondErr(w, "match", err)
		return
	}
	s.logger.Debug("match request", zap.Int("k", query.K), zap.Int("results", resp.Total))
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.components.Status(r.Context())
	if err != nil {
		s.respondErr(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.inbox.Directories()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mediaPath resolves p against the media root and rejects paths that escape it.
func (s *Server) mediaPath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", false
	}
	root := filepath.Clean(s.config.Storage.MediaRoot)
	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, p)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrIncompleteQuery),
		errors.Is(err, models.ErrNegativeK),
		errors.Is(err, matcher.ErrEmptyQuery),
		errors.Is(err, matcher.ErrEmptyID),
		errors.Is(err, vector.ErrInvalidK),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, indexer.ErrNotRegularFile):
		return http.StatusBadRequest
	case errors.Is(err, matcher.ErrEmptyText),
		errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, indexer.ErrFileNotFound),
		errors.Is(err, vector.ErrEmptyIndex):
		return http.StatusNotFound
	case errors.Is(err, indexer.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, matcher.ErrEmbedding):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	msg := err.Error()
	switch {
	case errors.Is(err, models.ErrIncompleteQuery):
		msg = models.ErrIncompleteQuery.Error()
	case errors.Is(err, indexer.ErrFileNotFound):
		msg = indexer.ErrFileNotFound.Error()
	case status == http.StatusInternalServerError:
		// server-side paths and driver errors stay in the log
		msg = http.StatusText(status)
	}
	s.respondError(w, status, msg)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// Package search answers job-description match requests against the resume index.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/storage"
	"go.uber.org/zap"
)

// Engine runs match queries and joins the hits with stored resume records.
type Engine struct {
	storage storage.Storage
	matcher *matcher.Manager
	config  *config.SearchConfig
	logger  *zap.Logger
}

// NewEngine creates a match engine with the given dependencies. logger may be nil.
func NewEngine(store storage.Storage, m *matcher.Manager, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{storage: store, matcher: m, config: cfg, logger: logger}
}

// Match validates query, searches the index and returns ranked resumes best first.
// Hits whose id has no stored resume record are dropped; the search over-fetches by the number
// of ledger ids without a record so that up to K results remain.
func (e *Engine) Match(ctx context.Context, query *models.MatchQuery) (*models.MatchResponse, error) {
	start := time.Now()
	if err := query.Validate(e.config.DefaultK, e.config.MaxK); err != nil {
		return nil, err
	}
	text := query.Text()

	k := query.K
	stored, err := e.storage.CountResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count resumes: %w", err)
	}
	if missing := e.matcher.LedgerLen() - int(stored); missing > 0 {
		k += missing
	}

	hits, err := e.matcher.Query(ctx, text, k)
	if err != nil {
		return nil, err
	}

	results := make([]*models.MatchResult, 0, query.K)
	for _, h := range hits {
		if len(results) == query.K {
			break
		}
		resume, err := e.storage.GetResume(ctx, h.ExternalID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("match without resume record", zap.String("resume_id", h.ExternalID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load resume %s: %w", h.ExternalID, err)
		}
		results = append(results, &models.MatchResult{
			ResumeID: h.ExternalID,
			Score:    h.Score,
			Rank:     len(results) + 1,
			FilePath: resume.FilePath,
		})
	}

	return &models.MatchResponse{
		Matches:   results,
		Total:     len(results),
		Metric:    string(e.matcher.Metric()),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     text,
	}, nil
}

package search_test

import (
	"context"
	"testing"

	"github.com/hyperjump/resumatch/internal/app/apptest"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resumes = map[string]string{
	"go":     "Backend engineer: Go, PostgreSQL, Kubernetes, gRPC microservices",
	"nurse":  "Registered nurse with ICU and emergency room experience",
	"chef":   "Pastry chef specialised in French desserts and bread",
	"design": "Product designer: Figma, user research, prototyping",
}

func TestEngine_Match(t *testing.T) {
	c := apptest.Open(t, nil)
	ctx := context.Background()
	for id, text := range resumes {
		_, err := c.Indexer.IndexText(ctx, id, text, "/media/"+id+".pdf")
		require.NoError(t, err)
	}

	resp, err := c.Search.Match(ctx, &models.MatchQuery{JobDescription: "Go engineer for Kubernetes microservices", K: 2})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "cosine", resp.Metric)
	assert.Equal(t, "go", resp.Matches[0].ResumeID)
	assert.Equal(t, 1, resp.Matches[0].Rank)
	assert.Equal(t, 2, resp.Matches[1].Rank)
	assert.Equal(t, "/media/go.pdf", resp.Matches[0].FilePath)
	assert.GreaterOrEqual(t, resp.Matches[0].Score, resp.Matches[1].Score)
}

func TestEngine_MatchStructuredQuery(t *testing.T) {
	c := apptest.Open(t, nil)
	ctx := context.Background()
	for id, text := range resumes {
		_, err := c.Indexer.IndexText(ctx, id, text, "")
		require.NoError(t, err)
	}

	q := &models.MatchQuery{JobTitle: "Registered nurse", Location: "Berlin", YearsExp: "3", Skills: "ICU emergency"}
	resp, err := c.Search.Match(ctx, q)
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 4, "default k is 5, capped by index size")
	assert.Equal(t, "nurse", resp.Matches[0].ResumeID)
	assert.Contains(t, resp.Query, "Job Title: Registered nurse")
}

func TestEngine_MatchErrors(t *testing.T) {
	c := apptest.Open(t, nil)
	ctx := context.Background()

	_, err := c.Search.Match(ctx, &models.MatchQuery{JobDescription: "anything"})
	assert.ErrorIs(t, err, vector.ErrEmptyIndex)

	_, err = c.Search.Match(ctx, &models.MatchQuery{JobTitle: "Chef"})
	assert.ErrorIs(t, err, models.ErrIncompleteQuery)

	_, err = c.Search.Match(ctx, &models.MatchQuery{JobDescription: "x", K: -1})
	assert.ErrorIs(t, err, models.ErrNegativeK)
}

func TestEngine_MatchSkipsIDsWithoutRecord(t *testing.T) {
	c := apptest.Open(t, nil)
	ctx := context.Background()

	// indexed but never stored as a resume record
	_, err := c.Matcher.Insert(ctx, "Go engineer, Kubernetes and microservices", "orphan")
	require.NoError(t, err)
	for id, text := range resumes {
		_, err := c.Indexer.IndexText(ctx, id, text, "")
		require.NoError(t, err)
	}

	resp, err := c.Search.Match(ctx, &models.MatchQuery{JobDescription: "Go engineer Kubernetes microservices", K: 1})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "go", resp.Matches[0].ResumeID)
}

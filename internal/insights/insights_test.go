package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/resumatch/internal/llm"
	"github.com/hyperjump/resumatch/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.prompt = user
	return f.reply, f.err
}

func TestParse_Lines(t *testing.T) {
	raw := `Here is the information:

Name: Jane Doe
Years of Experience: 7
Key Skills: Go, distributed systems, mentoring
Technologies / Tools: Kubernetes, PostgreSQL
Estimated Experience Level: Senior`

	s := Parse(raw)
	assert.Equal(t, Summary{
		Name:              "Jane Doe",
		YearsOfExperience: "7",
		KeySkills:         "Go, distributed systems, mentoring",
		Technologies:      "Kubernetes, PostgreSQL",
		ExperienceLevel:   "Senior",
	}, s)
}

func TestParse_NumberedAndBold(t *testing.T) {
	raw := "1. **Name**: [John Smith]\n2. **Years of Experience**: Not Available\n3. Skills: Python\n5. Experience Level: Mid"
	s := Parse(raw)
	assert.Equal(t, "John Smith", s.Name)
	assert.Equal(t, NotAvailable, s.YearsOfExperience)
	assert.Equal(t, "Python", s.KeySkills)
	assert.Equal(t, NotAvailable, s.Technologies)
	assert.Equal(t, "Mid", s.ExperienceLevel)
}

func TestParse_JSON(t *testing.T) {
	raw := "```json\n" + `{"Name": "Ana", "Years of Experience": 3, "Key Skills": ["Go", "SQL"], "Technologies / Tools": null}` + "\n```"
	s := Parse(raw)
	assert.Equal(t, "Ana", s.Name)
	assert.Equal(t, "3", s.YearsOfExperience)
	assert.Equal(t, "Go, SQL", s.KeySkills)
	assert.Equal(t, NotAvailable, s.Technologies)
	assert.Equal(t, NotAvailable, s.ExperienceLevel)
}

func TestParse_Garbage(t *testing.T) {
	s := Parse("I cannot help with that.")
	for _, f := range s.Fields() {
		assert.Equal(t, NotAvailable, f.Value, f.Label)
	}
}

func TestSummary_FieldsOrder(t *testing.T) {
	fields := Parse("").Fields()
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label
	}
	assert.Equal(t, []string{LabelName, LabelYears, LabelSkills, LabelTechnologies, LabelExperienceLevel}, labels)
}

func TestExtractor_TruncatesInput(t *testing.T) {
	f := &fakeCompleter{reply: "Name: X"}
	e := NewExtractor(f, 10, nil)

	_, err := e.Extract(context.Background(), "0123456789ABCDEFGHIJ")
	require.NoError(t, err)
	assert.Contains(t, f.prompt, "0123456789")
	assert.NotContains(t, f.prompt, "ABCDEF")
}

func TestExtractor_Errors(t *testing.T) {
	e := NewExtractor(&fakeCompleter{}, 0, nil)
	_, err := e.Extract(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyResume)

	boom := errors.New("rate limited")
	e = NewExtractor(&fakeCompleter{err: boom}, 0, nil)
	_, err = e.Extract(context.Background(), "resume")
	assert.ErrorIs(t, err, boom)
}

func TestExtractor_WithLLMClient(t *testing.T) {
	srv := llmtest.NewServer(t, llmtest.Static("Name: Lee\nEstimated Experience Level: Junior"))
	client, err := llm.New(llm.Config{BaseURL: srv.BaseURL(), Model: "test-model"}, nil)
	require.NoError(t, err)

	s, err := NewExtractor(client, 700, nil).Extract(context.Background(), "Lee, graduate developer")
	require.NoError(t, err)
	assert.Equal(t, "Lee", s.Name)
	assert.Equal(t, "Junior", s.ExperienceLevel)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.Contains(reqs[0].Messages[1].Content, "Lee, graduate developer"))
}

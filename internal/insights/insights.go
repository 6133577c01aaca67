// Package insights asks a chat model for structured fields about a resume.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/hyperjump/resumatch/internal/models"
	"go.uber.org/zap"
)

// NotAvailable is the value of any field the model did not provide.
const NotAvailable = "Not Available"

// Field labels, in display order.
const (
	LabelName            = "Name"
	LabelYears           = "Years of Experience"
	LabelSkills          = "Key Skills"
	LabelTechnologies    = "Technologies / Tools"
	LabelExperienceLevel = "Estimated Experience Level"
)

// ErrEmptyResume is returned when there is no resume text to analyze.
var ErrEmptyResume = errors.New("resume text is empty")

// Completer sends a prompt to a chat model. *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summary holds the fields extracted from one resume.
type Summary struct {
	Name              string `json:"name"`
	YearsOfExperience string `json:"years_of_experience"`
	KeySkills         string `json:"key_skills"`
	Technologies      string `json:"technologies"`
	ExperienceLevel   string `json:"experience_level"`
}

// Fields returns the summary as ordered label/value pairs.
func (s Summary) Fields() []models.InsightField {
	return []models.InsightField{
		{Label: LabelName, Value: s.Name},
		{Label: LabelYears, Value: s.YearsOfExperience},
		{Label: LabelSkills, Value: s.KeySkills},
		{Label: LabelTechnologies, Value: s.Technologies},
		{Label: LabelExperienceLevel, Value: s.ExperienceLevel},
	}
}

const systemPrompt = "You are an expert resume analyzer. Answer only in the requested format."

var promptTemplate = template.Must(template.New("insights").Parse(`Extract the following details from the resume text:

1. Person name (if available)
2. Years of experience (if mentioned)
3. Key skills (comma separated)
4. Technologies / tools mentioned (comma separated)
5. Estimated experience level (Junior, Mid or Senior)

Resume:
"""
{{.Resume}}
"""

Reply with exactly these lines:

Name: [name or Not Available]
Years of Experience: [years or Not Available]
Key Skills: [skills or Not Available]
Technologies / Tools: [tools or Not Available]
Estimated Experience Level: [Junior/Mid/Senior or Not Available]
`))

// Extractor builds prompts, calls the model and parses its answer.
type Extractor struct {
	llm           Completer
	maxInputChars int
	logger        *zap.Logger
}

// NewExtractor creates an Extractor. Resume text is cut to maxInputChars runes (0 = unlimited).
func NewExtractor(llm Completer, maxInputChars int, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{llm: llm, maxInputChars: maxInputChars, logger: logger}
}

// Extract returns the structured summary of text.
func (e *Extractor) Extract(ctx context.Context, text string) (Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Summary{}, ErrEmptyResume
	}
	prompt, err := e.prompt(text)
	if err != nil {
		return Summary{}, err
	}
	raw, err := e.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Summary{}, fmt.Errorf("insights: %w", err)
	}
	s := Parse(raw)
	e.logger.Debug("resume insights extracted", zap.String("level", s.ExperienceLevel))
	return s, nil
}

func (e *Extractor) prompt(text string) (string, error) {
	if e.maxInputChars > 0 && utf8.RuneCountInString(text) > e.maxInputChars {
		text = string([]rune(text)[:e.maxInputChars])
	}
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ Resume string }{text}); err != nil {
		return "", fmt.Errorf("render insights prompt: %w", err)
	}
	return buf.String(), nil
}

// Parse reads a model answer as a JSON object or as "Label: value" lines.
// Missing or blank fields become NotAvailable.
func Parse(raw string) Summary {
	values := parseJSON(raw)
	if values == nil {
		values = parseLines(raw)
	}
	get := func(label string) string {
		if v := strings.TrimSpace(values[normalizeKey(label)]); v != "" {
			return v
		}
		return NotAvailable
	}
	return Summary{
		Name:              get(LabelName),
		YearsOfExperience: get(LabelYears),
		KeySkills:         get(LabelSkills),
		Technologies:      get(LabelTechnologies),
		ExperienceLevel:   get(LabelExperienceLevel),
	}
}

func parseJSON(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```"))
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[normalizeKey(k)] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func parseLines(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k := normalizeKey(key)
		if _, seen := out[k]; seen || k == "" {
			continue
		}
		out[k] = strings.Trim(strings.TrimSpace(value), "*[]\", ")
	}
	return out
}

var keyAliases = map[string]string{
	"person name":         "name",
	"experience years":    "years of experience",
	"years_of_experience": "years of experience",
	"skills":              "key skills",
	"key_skills":          "key skills",
	"technologies":        "technologies / tools",
	"tools":               "technologies / tools",
	"technologies/tools":  "technologies / tools",
	"level":               "estimated experience level",
	"experience level":    "estimated experience level",
	"experience_level":    "estimated experience level",
}

// normalizeKey lowercases a label and strips list markers and emphasis, so "1. **Name**" and
// "name" compare equal.
func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.TrimLeft(k, "-*0123456789. ")
	k = strings.Trim(k, "*_\" ")
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/models"
)

func sampleMatches() *models.MatchResponse {
	return &models.MatchResponse{
		Query:     "Go engineer",
		QueryTime: 42,
		Metric:    "cosine",
		Total:     2,
		Matches: []*models.MatchResult{
			{ResumeID: "alice", Score: 0.91, Rank: 1, FilePath: "/inbox/alice.pdf"},
			{ResumeID: "bob", Score: 0.42, Rank: 2},
		},
	}
}

func TestWriteMatchResults_JSON(t *testing.T) {
	response := sampleMatches()
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteMatchResults(json): %v", err)
	}
	var decoded models.MatchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.Total != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Matches) != 2 || decoded.Matches[0].ResumeID != "alice" {
		t.Errorf("decoded matches = %+v", decoded.Matches)
	}
}

func TestWriteMatchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleMatches(), OutputText); err != nil {
		t.Fatalf("WriteMatchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 matches", "42ms", "cosine", "alice", "similarity 0.9100", "/inbox/alice.pdf", "bob"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteMatchResults_textL2AndEmpty(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.MatchResponse{Metric: "l2", Total: 1, Matches: []*models.MatchResult{{ResumeID: "x", Score: 1.5, Rank: 1}}}
	if err := WriteMatchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "distance 1.5000") {
		t.Errorf("l2 output should show distance:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteMatchResults(&buf, &models.MatchResponse{Metric: "cosine"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No resumes matched") {
		t.Errorf("empty output:\n%s", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	status := &models.StatusResponse{
		Resumes: 3, IndexSize: 3, LedgerLen: 4, BackupLen: -1, PendingLedger: 1,
		Metric: "cosine", IndexType: "memory", EmbeddingModel: "mock", Dimensions: 64,
		DiskUsageBytes: 2048,
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Resumes:         3", "memory, cosine", "(1 pending)", "2.0 KiB", "INCONSISTENT"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "Backup vectors") {
		t.Error("backup line should be hidden without a backup")
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.StatusResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.LedgerLen != 4 {
		t.Errorf("decoded ledger_len = %d", decoded.LedgerLen)
	}
}

func TestWriteIndexResults(t *testing.T) {
	results := []indexer.FileResult{
		{Path: "/in/a.pdf", ResumeID: "a-1", Position: 0},
		{Path: "/in/b.pdf", ResumeID: "b-2", Position: -1, Skipped: true},
		{Path: "/in/c.pdf", ResumeID: "c-3", Position: -1, Err: errors.New("no text")},
	}
	var buf bytes.Buffer
	if err := WriteIndexResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"OK    /in/a.pdf -> a-1 @0", "SKIP  /in/b.pdf", "FAIL  /in/c.pdf: no text", "1 indexed, 1 skipped, 1 failed"} {
		if !strings.Contains(out, sub) {
			t.Errorf("index output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteIndexResults(&buf, results, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[2]["error"] != "no text" {
		t.Errorf("rows = %v", rows)
	}
}

func TestWriteInsights(t *testing.T) {
	fields := []models.InsightField{{Label: "Name", Value: "Jane"}, {Label: "Key Skills", Value: "Go, SQL"}}
	var buf bytes.Buffer
	if err := WriteInsights(&buf, fields, OutputText); err != nil {
		t.Fatal(err)
	}
	if want := "Name:        Jane\nKey Skills:  Go, SQL\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

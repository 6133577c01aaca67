package models

// MatchResult is one ranked resume. Score is the raw index score: higher is better for cosine,
// lower is better for l2.
type MatchResult struct {
	ResumeID string  `json:"resume_id"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
	FilePath string  `json:"file_path,omitempty"`
}

// MatchResponse is the response for a match request.
type MatchResponse struct {
	Matches   []*MatchResult `json:"matches"`
	Total     int            `json:"total"`
	Metric    string         `json:"metric"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
}

// StatusResponse reports index health for the status endpoint and command.
type StatusResponse struct {
	Resumes        int64  `json:"resumes"`
	IndexSize      int    `json:"index_size"`
	LedgerLen      int    `json:"ledger_len"`
	BackupLen      int    `json:"backup_len"`
	PendingLedger  int    `json:"pending_ledger"`
	Consistent     bool   `json:"consistent"`
	Metric         string `json:"metric"`
	IndexType      string `json:"index_type"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}

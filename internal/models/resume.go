// Package models defines the resume, match query and match result types shared by the API and CLI.
package models

import "time"

// Resume is a stored resume record. ID is the caller's external id and the ledger key.
type Resume struct {
	ID        string    `json:"id" db:"id"`
	FilePath  string    `json:"file_path,omitempty" db:"file_path"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ResumeInput is the body of POST /api/v1/resumes.
type ResumeInput struct {
	ID   string `json:"resume_id"`
	Text string `json:"text"`
}

// ProcessPathInput is the body of POST /api/v1/resumes/process-path.
// Path is relative to the configured media root.
type ProcessPathInput struct {
	Path string `json:"path"`
	ID   string `json:"resume_id"`
}

// IndexResponse is returned after a resume is indexed.
type IndexResponse struct {
	Message  string `json:"message"`
	ResumeID string `json:"resume_id"`
	Position int    `json:"position"`
	Warning  string `json:"warning,omitempty"`
}

// InsightField is one label/value pair of an LLM resume summary.
type InsightField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

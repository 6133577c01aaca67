package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteQuery is returned when neither a job description nor the required structured fields are given.
var ErrIncompleteQuery = errors.New(`either provide "job_description" or all of "job_title", "location", and "years_exp"`)

// ErrNegativeK is returned when a query asks for a negative number of matches.
var ErrNegativeK = errors.New("k must not be negative")

// MatchQuery is a match request: a free-text job description, or structured fields composed into one.
type MatchQuery struct {
	JobDescription string `json:"job_description,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	Location       string `json:"location,omitempty"`
	YearsExp       string `json:"years_exp,omitempty"`
	Skills         string `json:"skills,omitempty"`
	Qualifications string `json:"qualifications,omitempty"`
	K              int    `json:"k,omitempty"`
}

// Validate trims the fields, requires a description or title+location+years_exp, and bounds K.
func (q *MatchQuery) Validate(defaultK, maxK int) error {
	q.JobDescription = strings.TrimSpace(q.JobDescription)
	q.JobTitle = strings.TrimSpace(q.JobTitle)
	q.Location = strings.TrimSpace(q.Location)
	q.YearsExp = strings.TrimSpace(q.YearsExp)
	q.Skills = strings.TrimSpace(q.Skills)
	q.Qualifications = strings.TrimSpace(q.Qualifications)

	if q.JobDescription == "" && (q.JobTitle == "" || q.Location == "" || q.YearsExp == "") {
		return ErrIncompleteQuery
	}
	if q.K < 0 {
		return ErrNegativeK
	}
	if q.K == 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}

// Text returns the text to embed. A job description wins over structured fields.
func (q *MatchQuery) Text() string {
	if q.JobDescription != "" {
		return q.JobDescription
	}
	return fmt.Sprintf("Job Title: %s; Location: %s; Years Exp: %s; Skills: %s; Qualifications: %s",
		q.JobTitle, q.Location, q.YearsExp, q.Skills, q.Qualifications)
}

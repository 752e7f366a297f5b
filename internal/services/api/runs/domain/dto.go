// Package domain holds DTOs for the runs http and service contracts
package domain

import (
	"encoding/json"
	"time"
)

// Run is one published prep run
// Summary is the stored run summary document, returned as written
type Run struct {
	RunID       string          `json:"run_id" example:"0b6f6a1e-6f3e-4f55-9a55-0f3f3d8f4a11"`
	Dir         string          `json:"dir" example:"/data/nhanes"`
	Status      string          `json:"status" example:"partial"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	PublishedAt time.Time       `json:"published_at"`
	Subjects    int             `json:"subjects" example:"20470"`
	FrameRows   int             `json:"frame_rows" example:"20470"`
	Summary     json.RawMessage `json:"summary" swaggertype:"object"`
}

// IssuesQuery filters the issues of a run
type IssuesQuery struct {
	Kind  string `query:"kind" validate:"omitempty,max=64" example:"variable_unavailable"`
	Cycle int    `query:"cycle" validate:"omitempty,cycle" example:"2011"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=1000" example:"100"`
}

// DefaultIssueLimit applies when IssuesQuery.Limit is zero
const DefaultIssueLimit = 200

// Issue is one recorded run problem
type Issue struct {
	Ordinal    int    `json:"ordinal" example:"3"`
	Kind       string `json:"kind" example:"subject_excluded"`
	Cycle      int    `json:"cycle,omitempty" example:"2011"`
	File       string `json:"file,omitempty" example:"PAXMIN_G.XPT"`
	Variable   string `json:"variable,omitempty" example:"bmi"`
	Subject    int64  `json:"seqn,omitempty" example:"62161"`
	Generation string `json:"generation,omitempty" example:"gen2011"`
	Detail     string `json:"detail" example:"no valid epochs"`
}

// SubjectRow is the resolved frame row of one subject
type SubjectRow struct {
	RunID   string         `json:"run_id"`
	Subject int64          `json:"seqn" example:"62161"`
	Cycle   int            `json:"cycle" example:"2011"`
	Values  map[string]any `json:"values"`
}

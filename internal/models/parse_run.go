package models

import "time"

// ParseRunStatus represents the state of an ingestion attempt.
type ParseRunStatus string

const (
	ParseRunStatusStarted   ParseRunStatus = "STARTED"
	ParseRunStatusCompleted ParseRunStatus = "COMPLETED"
	ParseRunStatusFailed    ParseRunStatus = "FAILED"
)

// ParseRun records one attempt to extract metrics from a test's data files.
type ParseRun struct {
	ID             string         `json:"id"`
	BinderTestID   string         `json:"binderTestId"`
	InputFileIDs   []string       `json:"inputFileIds"`
	InputFilesHash string         `json:"inputFilesHash"`
	ParserVersion  string         `json:"parserVersion"`
	Status         ParseRunStatus `json:"status"`
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
}

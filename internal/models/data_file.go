package models

import "time"

// DataFile is an ingestible artifact (PDF, spreadsheet, ...) attached to a binder test.
type DataFile struct {
	ID           string    `json:"id"`
	BinderTestID string    `json:"binderTestId"`
	FileURL      string    `json:"fileUrl"`
	FileType     string    `json:"fileType"`
	Label        string    `json:"label,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName returns the label, or the URL when no label was given.
func (f *DataFile) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.FileURL
}

// EvidenceFile is the resolved (id, filename) pair embedded in a summary.
type EvidenceFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

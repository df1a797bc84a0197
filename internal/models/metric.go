package models

import (
	"strings"
	"time"
)

// PositionUnknown marks an extraction whose position could not be determined.
// Tests carrying it cannot pass the confirmation gate.
const PositionUnknown = "UNKNOWN"

// Metric is one extracted (or manually entered) numeric measurement.
type Metric struct {
	ID                string     `json:"id"`
	BinderTestID      string     `json:"binderTestId"`
	ParseRunID        string     `json:"parseRunId,omitempty"`
	MetricType        string     `json:"metricType"`
	MetricName        string     `json:"metricName"`
	Position          string     `json:"position,omitempty"`
	Value             *float64   `json:"value"`
	Units             string     `json:"units,omitempty"`
	Temperature       *float64   `json:"temperature,omitempty"`
	Frequency         *float64   `json:"frequency,omitempty"`
	SourceFileID      string     `json:"sourceFileId,omitempty"`
	SourcePage        *int       `json:"sourcePage,omitempty"`
	Confidence        *float64   `json:"confidence,omitempty"`
	IsUserConfirmed   bool       `json:"isUserConfirmed"`
	ConfirmedByUserID string     `json:"confirmedByUserId,omitempty"`
	ConfirmedByRole   string     `json:"confirmedByRole,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasUnknownPosition reports whether the metric carries the UNKNOWN sentinel.
func (m *Metric) HasUnknownPosition() bool {
	return strings.EqualFold(strings.TrimSpace(m.Position), PositionUnknown)
}

// DisplayName returns the metric name, or its type when unnamed.
func (m *Metric) DisplayName() string {
	if m.MetricName != "" {
		return m.MetricName
	}
	return m.MetricType
}

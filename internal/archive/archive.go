// Package archive publishes frozen summaries as JSON artifacts to a
// filesystem directory or an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/inov8tr/ecolab/internal/models"
)

// Driver names a publication backend.
type Driver string

const (
	DriverNone       Driver = "none"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// ContentType of every published artifact.
const ContentType = "application/json"

// ErrExists is returned when an artifact for the summary version was already published.
var ErrExists = errors.New("artifact already exists")

// Receipt describes a published artifact.
type Receipt struct {
	Key      string `json:"key"`
	ETag     string `json:"etag,omitempty"`
	Location string `json:"location"`
}

// Publisher stores summary artifacts. Publication is create-only: summaries
// are immutable, so a second publish of the same version fails with ErrExists.
type Publisher interface {
	Driver() Driver
	Publish(ctx context.Context, s *models.Summary) (Receipt, error)
	// Check reports whether the backend is reachable and writable.
	Check(ctx context.Context) error
}

// Config selects and configures a Publisher.
type Config struct {
	Driver Driver
	Dir    string
	S3     S3Config
}

// New builds the publisher described by cfg. DriverNone (or empty) yields Nop.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive driver: %q", cfg.Driver)
	}
}

// Key returns the object key for a summary version.
func Key(s *models.Summary) string {
	return "binder-tests/" + s.BinderTestID + "/summaries/v" + strconv.Itoa(s.Version) + ".json"
}

// metadata is attached to each artifact (S3 user metadata, fs sidecar).
func metadata(s *models.Summary) map[string]string {
	return map[string]string{
		"binder-test-id": s.BinderTestID,
		"version":        strconv.Itoa(s.Version),
		"durable-id":     s.DurableID,
		"metrics-hash":   s.DerivedFromMetricsHash,
	}
}

func encode(s *models.Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary artifact: %w", err)
	}
	return data, nil
}

// Nop discards artifacts.
type Nop struct{}

func (Nop) Driver() Driver { return DriverNone }

func (Nop) Publish(context.Context, *models.Summary) (Receipt, error) { return Receipt{}, nil }

func (Nop) Check(context.Context) error { return nil }

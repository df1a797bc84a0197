package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
)

// Filesystem writes artifacts under a root directory with a .meta sidecar
// carrying content type, metadata and a sha256 etag.
type Filesystem struct {
	root string
}

type metaFile struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewFilesystem returns a publisher rooted at dir, creating it if needed.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Filesystem{root: dir}, nil
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// Check verifies the root is a writable directory.
func (f *Filesystem) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, ".check-*")
	if err != nil {
		return fmt.Errorf("archive dir not writable: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}

// Root returns the directory artifacts are written under.
func (f *Filesystem) Root() string { return f.root }

func (f *Filesystem) Publish(ctx context.Context, s *models.Summary) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	key := Key(s)
	dataPath := filepath.Join(f.root, filepath.FromSlash(key))
	if _, err := os.Stat(dataPath); err == nil {
		return Receipt{}, fmt.Errorf("%s: %w", key, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := encode(s)
	if err != nil {
		return Receipt{}, err
	}

	// Stream to a temp file, then rename into place.
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Receipt{}, fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), bytes.NewReader(data))
	if err != nil {
		_ = tmp.Close()
		return Receipt{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Receipt{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Receipt{}, fmt.Errorf("move artifact: %w", err)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	meta, err := json.MarshalIndent(metaFile{
		ContentType: ContentType,
		Metadata:    metadata(s),
		ETag:        etag,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return Receipt{}, fmt.Errorf("encode artifact meta: %w", err)
	}
	if err := os.WriteFile(dataPath+".meta", meta, 0o644); err != nil {
		return Receipt{}, fmt.Errorf("write artifact meta: %w", err)
	}

	return Receipt{Key: key, ETag: etag, Location: dataPath}, nil
}

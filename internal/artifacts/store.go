// Package artifacts stores binary interview artifacts (synthesized audio, candidate
// uploads, mirrored video) under collision-free names.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-interview/backend/pkg/storage"
)

// Kind is the folder an artifact is filed under.
type Kind string

const (
	KindAudio  Kind = storage.FolderAudio
	KindUpload Kind = storage.FolderUploads
	KindVideo  Kind = storage.FolderVideo
)

// Store persists an artifact and returns a URL it can be fetched from.
type Store interface {
	Save(ctx context.Context, kind Kind, contentType string, body io.Reader, size int64) (string, error)
}

// Key returns a fresh object key: {kind}/{uuid}{ext}.
func Key(kind Kind, contentType string) string {
	return path.Join(string(kind), uuid.NewString()+storage.ExtensionFor(contentType))
}

type uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// S3Store writes artifacts to the artifacts bucket.
type S3Store struct {
	s3 uploader
}

// NewS3Store wraps an S3 client.
func NewS3Store(s3 *storage.S3) *S3Store { return &S3Store{s3: s3} }

func (s *S3Store) Save(ctx context.Context, kind Kind, contentType string, body io.Reader, size int64) (string, error) {
	url, err := s.s3.Upload(ctx, Key(kind, contentType), contentType, body, size)
	if err != nil {
		return "", fmt.Errorf("save %s artifact: %w", kind, err)
	}
	return url, nil
}

// LocalStore writes artifacts below a directory served at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the root directory on disk.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, kind Kind, contentType string, body io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := Key(kind, contentType)
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create artifact folder: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

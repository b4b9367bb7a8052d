// Package storage keeps uploaded blobs (evidence, payment QR codes, the system config document).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeyuan/appeal-service/internal/apperr"
)

// Bucket prefixes.
const (
	EvidenceBucket = "evidence"
	QRBucket       = "qr"
	ConfigBucket   = "config"
)

// MaxEvidenceBytes caps a single evidence upload.
const MaxEvidenceBytes = 10 << 20

// ErrNotExist is returned by Open when the key has no blob.
var ErrNotExist = errors.New("storage: object does not exist")

// Storage is the blob store collaborator.
type Storage interface {
	// Upload writes r under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Open returns a reader for key, or ErrNotExist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key without checking it exists.
	URL(key string) string
}

// LocalStorage stores blobs on the local filesystem and serves them under /files.
type LocalStorage struct {
	root    string // Directory holding every bucket.
	baseURL string // Public server URL, e.g. "http://localhost:8080".
}

// NewLocalStorage creates the root directory and its buckets.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	for _, bucket := range []string{EvidenceBucket, QRBucket, ConfigBucket} {
		if errMkdir := os.MkdirAll(filepath.Join(root, bucket), 0o755); errMkdir != nil {
			return nil, fmt.Errorf("storage: create %s bucket: %w", bucket, errMkdir)
		}
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory served as /files.
func (s *LocalStorage) Root() string { return s.root }

// URL returns the public URL for key.
func (s *LocalStorage) URL(key string) string {
	return s.baseURL + "/files/" + strings.TrimLeft(path.Clean("/"+key), "/")
}

// Upload writes the blob atomically through a temp file and rename.
func (s *LocalStorage) Upload(ctx context.Context, key, _ string, r io.Reader) (string, error) {
	full, errPath := s.resolve(key)
	if errPath != nil {
		return "", apperr.Upload("invalid object key", errPath)
	}
	if errCtx := ctx.Err(); errCtx != nil {
		return "", apperr.Upload("upload cancelled", errCtx)
	}
	if errMkdir := os.MkdirAll(filepath.Dir(full), 0o755); errMkdir != nil {
		return "", apperr.Upload("create object directory", errMkdir)
	}
	tmp, errCreate := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if errCreate != nil {
		return "", apperr.Upload("create object", errCreate)
	}
	tmpName := tmp.Name()
	if _, errCopy := io.Copy(tmp, r); errCopy != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", apperr.Upload("write object", errCopy)
	}
	if errClose := tmp.Close(); errClose != nil {
		_ = os.Remove(tmpName)
		return "", apperr.Upload("write object", errClose)
	}
	if errRename := os.Rename(tmpName, full); errRename != nil {
		_ = os.Remove(tmpName)
		return "", apperr.Upload("commit object", errRename)
	}
	return s.URL(key), nil
}

// Open opens the blob stored under key.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	full, errPath := s.resolve(key)
	if errPath != nil {
		return nil, errPath
	}
	file, errOpen := os.Open(full)
	if errOpen != nil {
		if errors.Is(errOpen, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("storage: open %s: %w", key, errOpen)
	}
	return file, nil
}

// Delete removes the blob stored under key.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	full, errPath := s.resolve(key)
	if errPath != nil {
		return errPath
	}
	if errRemove := os.Remove(full); errRemove != nil && !errors.Is(errRemove, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, errRemove)
	}
	return nil
}

// resolve maps key to a path inside root, rejecting traversal.
func (s *LocalStorage) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: empty key")
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// SanitizeName replaces every character outside [a-zA-Z0-9.] with an underscore.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// EvidenceKey builds "evidence/<unixmillis>_<random>_<sanitized name>".
func EvidenceKey(name string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%s/%d_%s_%s", EvidenceBucket, now.UnixMilli(), random, SanitizeName(filepath.Base(name)))
}

// QRKey builds "qr/qr_<unixmillis>.<ext>", defaulting the extension to png.
func QRKey(name string, now time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("%s/qr_%d.%s", QRBucket, now.UnixMilli(), SanitizeName(ext))
}

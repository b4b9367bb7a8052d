package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/zeyuan/appeal-service/internal/apperr"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, errNew := NewLocalStorage(t.TempDir(), "http://localhost:8080/")
	if errNew != nil {
		t.Fatalf("new storage: %v", errNew)
	}
	ctx := context.Background()

	url, errUpload := s.Upload(ctx, "evidence/a.png", "image/png", strings.NewReader("png-bytes"))
	if errUpload != nil {
		t.Fatalf("upload: %v", errUpload)
	}
	if url != "http://localhost:8080/files/evidence/a.png" {
		t.Fatalf("unexpected url %s", url)
	}

	rc, errOpen := s.Open(ctx, "evidence/a.png")
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if errDelete := s.Delete(ctx, "evidence/a.png"); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if errDelete := s.Delete(ctx, "evidence/a.png"); errDelete != nil {
		t.Fatalf("second delete should be a no-op: %v", errDelete)
	}
	if _, errOpen := s.Open(ctx, "evidence/a.png"); !errors.Is(errOpen, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", errOpen)
	}
}

func TestUploadRejectsTraversal(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir(), "http://x")
	_, errUpload := s.Upload(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"))
	if !apperr.IsKind(errUpload, apperr.KindUpload) {
		t.Fatalf("expected upload error, got %v", errUpload)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk full") }

func TestUploadWriteFailureIsUploadError(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir(), "http://x")
	_, errUpload := s.Upload(context.Background(), "evidence/b.png", "image/png", failingReader{})
	if !apperr.IsKind(errUpload, apperr.KindUpload) {
		t.Fatalf("expected upload error, got %v", errUpload)
	}
}

func TestEvidenceKey(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	key := EvidenceKey("我的 截图(1).PNG", now)
	pattern := regexp.MustCompile(`^evidence/1718000000123_[0-9a-f]{10}_[a-zA-Z0-9._]+$`)
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %s", key)
	}
	if !strings.HasSuffix(key, "_____1_.PNG") {
		t.Fatalf("expected sanitized suffix, got %s", key)
	}
	if SanitizeName("a-b c.png") != "a_b_c.png" {
		t.Fatalf("unexpected sanitize result")
	}
}

func TestQRKey(t *testing.T) {
	now := time.UnixMilli(42)
	if got := QRKey("pay.JPG", now); got != "qr/qr_42.jpg" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := QRKey("noext", now); got != "qr/qr_42.png" {
		t.Fatalf("unexpected key %s", got)
	}
}

// Package sysconfig stores the operator-editable SystemConfig document as a JSON blob.
package sysconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/storage"
)

// Key is the blob key of the document.
const Key = storage.ConfigBucket + "/system_config.json"

// Marketing defaults used when a field is absent, zero or empty.
const (
	DefaultBaseCases      = 3680
	DefaultBaseProcessing = 18
	DefaultSuccessRate    = "98.8"
)

// SystemConfig is the singleton shown on the client dashboard.
type SystemConfig struct {
	ContactInfo             string `json:"contactInfo"`
	PaymentQRURL            string `json:"paymentQrUrl,omitempty"`
	MarketingBaseCases      int    `json:"marketingBaseCases,omitempty"`
	MarketingSuccessRate    string `json:"marketingSuccessRate,omitempty"`
	MarketingBaseProcessing int    `json:"marketingBaseProcessing,omitempty"`
}

// WithDefaults returns a copy with the marketing defaults filled in.
func (c SystemConfig) WithDefaults() SystemConfig {
	if c.MarketingBaseCases == 0 {
		c.MarketingBaseCases = DefaultBaseCases
	}
	if c.MarketingBaseProcessing == 0 {
		c.MarketingBaseProcessing = DefaultBaseProcessing
	}
	if strings.TrimSpace(c.MarketingSuccessRate) == "" {
		c.MarketingSuccessRate = DefaultSuccessRate
	}
	return c
}

// Service reads and writes the document.
type Service struct {
	blobs storage.Storage
	now   func() time.Time

	mu       sync.RWMutex
	lastGood *SystemConfig
}

// New constructs a Service over blobs.
func New(blobs storage.Storage) *Service {
	return &Service{blobs: blobs, now: time.Now}
}

// Load reads the document fresh. A missing document yields an empty config with defaults;
// a failed read falls back to the last document read successfully.
func (s *Service) Load(ctx context.Context) (SystemConfig, error) {
	raw, errRead := s.read(ctx)
	switch {
	case errors.Is(errRead, storage.ErrNotExist):
		return SystemConfig{}.WithDefaults(), nil
	case errRead != nil:
		if cached, ok := s.Cached(); ok {
			log.WithError(errRead).Warn("sysconfig: read failed, serving last good snapshot")
			return cached, nil
		}
		return SystemConfig{}, apperr.Persistence("system config read failed", errRead)
	}

	var cfg SystemConfig
	if errDecode := json.Unmarshal(raw, &cfg); errDecode != nil {
		if cached, ok := s.Cached(); ok {
			log.WithError(errDecode).Warn("sysconfig: malformed document, serving last good snapshot")
			return cached, nil
		}
		return SystemConfig{}.WithDefaults(), nil
	}
	cfg = cfg.WithDefaults()
	s.remember(cfg)
	return cfg, nil
}

// Refresh reloads the snapshot. Used by the scheduler.
func (s *Service) Refresh(ctx context.Context) error {
	_, errLoad := s.Load(ctx)
	return errLoad
}

// Cached returns the last document read or written successfully.
func (s *Service) Cached() (SystemConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastGood == nil {
		return SystemConfig{}, false
	}
	return *s.lastGood, true
}

// Save overwrites the document wholesale.
func (s *Service) Save(ctx context.Context, cfg SystemConfig) error {
	if rate := strings.TrimSpace(cfg.MarketingSuccessRate); rate != "" {
		if _, errParse := strconv.ParseFloat(rate, 64); errParse != nil {
			return apperr.Validation("marketing success rate %q is not a number", rate)
		}
		cfg.MarketingSuccessRate = rate
	}
	if cfg.MarketingBaseCases < 0 || cfg.MarketingBaseProcessing < 0 {
		return apperr.Validation("marketing base numbers must not be negative")
	}
	raw, errEncode := json.Marshal(cfg)
	if errEncode != nil {
		return apperr.Persistence("encode system config", errEncode)
	}
	if _, errUpload := s.blobs.Upload(ctx, Key, "application/json", bytes.NewReader(raw)); errUpload != nil {
		return errUpload
	}
	s.remember(cfg.WithDefaults())
	return nil
}

// SaveQR uploads a payment QR image and stores its URL in the document.
func (s *Service) SaveQR(ctx context.Context, filename, contentType string, r io.Reader) (SystemConfig, error) {
	url, errUpload := s.blobs.Upload(ctx, storage.QRKey(filename, s.now()), contentType, r)
	if errUpload != nil {
		return SystemConfig{}, errUpload
	}
	current, errLoad := s.Load(ctx)
	if errLoad != nil {
		return SystemConfig{}, errLoad
	}
	current.PaymentQRURL = url
	if errSave := s.Save(ctx, current); errSave != nil {
		return SystemConfig{}, errSave
	}
	return current, nil
}

func (s *Service) read(ctx context.Context) ([]byte, error) {
	rc, errOpen := s.blobs.Open(ctx, Key)
	if errOpen != nil {
		return nil, errOpen
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) remember(cfg SystemConfig) {
	s.mu.Lock()
	s.lastGood = &cfg
	s.mu.Unlock()
}

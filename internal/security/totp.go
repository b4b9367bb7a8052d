package security

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
)

// TOTPEnrollment is a freshly generated secret awaiting confirmation.
type TOTPEnrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRImage    string `json:"qr_image,omitempty"` // PNG data URL.
}

// NewTOTPEnrollment generates a secret for account under issuer.
func NewTOTPEnrollment(issuer, account string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account})
	if err != nil {
		return nil, err
	}
	out := &TOTPEnrollment{Secret: key.Secret(), OTPAuthURL: key.URL()}
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			out.QRImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return out, nil
}

// ValidateTOTP checks a 6-digit code against secret.
func ValidateTOTP(code, secret string) bool {
	return code != "" && secret != "" && totp.Validate(code, secret)
}

type expiringEntry struct {
	value   string
	expires time.Time
}

// ExpiringStore keeps short-lived values in memory.
type ExpiringStore struct {
	mu    sync.Mutex
	items map[string]expiringEntry
	now   func() time.Time
}

// NewExpiringStore creates an empty store.
func NewExpiringStore() *ExpiringStore {
	return &ExpiringStore{items: make(map[string]expiringEntry), now: time.Now}
}

// Set stores value under key until ttl elapses.
func (s *ExpiringStore) Set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[key] = expiringEntry{value: value, expires: s.now().Add(ttl)}
}

// Get returns the value if present and not expired.
func (s *ExpiringStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok {
		return "", false
	}
	if s.now().After(entry.expires) {
		delete(s.items, key)
		return "", false
	}
	return entry.value, true
}

// Delete removes a key.
func (s *ExpiringStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

func (s *ExpiringStore) sweepLocked() {
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
}

package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestTokenRoundTrip(t *testing.T) {
	token, claims, err := GenerateToken("s3cret", "user-1", "a@example.com", "CLIENT", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("expected token id")
	}
	parsed, err := ParseToken("s3cret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.UserID != "user-1" || parsed.Role != "CLIENT" || parsed.ID != claims.ID {
		t.Fatalf("unexpected claims %+v", parsed)
	}
	if _, err := ParseToken("other", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	token, _, err := GenerateToken("s3cret", "user-1", "a@example.com", "CLIENT", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("s3cret", token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	UseMinCostForTests()
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter22") || CheckPassword(hash, "hunter23") {
		t.Fatalf("password check mismatch")
	}
}

func TestTOTPEnrollmentValidates(t *testing.T) {
	enrollment, err := NewTOTPEnrollment("appeal-service", "admin@example.com")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !ValidateTOTP(code, enrollment.Secret) {
		t.Fatalf("expected code to validate")
	}
	if ValidateTOTP("", enrollment.Secret) {
		t.Fatalf("empty code must not validate")
	}
}

func TestExpiringStore(t *testing.T) {
	s := NewExpiringStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	s.Set("k", "v", time.Minute)
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Fatalf("expected value, got %q %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected expiry")
	}
}

// Package settings keeps an in-memory snapshot of the operational settings table.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeyuan/appeal-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys and their defaults.
const (
	// SiteNameKey is the portal display name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is used when SITE_NAME is unset.
	DefaultSiteName = "申诉服务中心"
	// RegistrationOpenKey toggles client self sign-up.
	RegistrationOpenKey = "REGISTRATION_OPEN"
	// DefaultRegistrationOpen is used when REGISTRATION_OPEN is unset.
	DefaultRegistrationOpen = true
	// DefaultDeductionKey is the amount pre-filled when an admin passes an appeal.
	DefaultDeductionKey = "DEFAULT_DEDUCTION_AMOUNT"
	// DefaultDeductionAmount is used when DEFAULT_DEDUCTION_AMOUNT is unset.
	DefaultDeductionAmount = 0.0
)

var errNilDB = errors.New("settings: nil db")

// snapshot is an immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// Store caches setting rows and refreshes them on demand.
type Store struct {
	db      *gorm.DB
	current atomic.Pointer[snapshot]
}

// NewStore constructs a Store with an empty snapshot.
func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	s.current.Store(&snapshot{values: map[string]json.RawMessage{}})
	return s
}

// Refresh reloads every row into a new snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; errFind != nil {
		return errFind
	}
	next := &snapshot{values: make(map[string]json.RawMessage, len(rows))}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		next.values[key] = append(json.RawMessage(nil), row.Value...)
		if row.UpdatedAt.After(next.updatedAt) {
			next.updatedAt = row.UpdatedAt.UTC()
		}
	}
	s.current.Store(next)
	return nil
}

// Set upserts a value and refreshes the snapshot.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return errMarshal
	}
	row := models.Setting{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if errUpsert != nil {
		return errUpsert
	}
	return s.Refresh(ctx)
}

// All returns a copy of every raw value.
func (s *Store) All() map[string]json.RawMessage {
	snap := s.current.Load()
	out := make(map[string]json.RawMessage, len(snap.values))
	for k, v := range snap.values {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// UpdatedAt returns the newest row timestamp seen by the last refresh.
func (s *Store) UpdatedAt() time.Time {
	return s.current.Load().updatedAt
}

// String returns a string setting or def when unset.
func (s *Store) String(key, def string) string {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	if v := parseString(raw); v != "" {
		return v
	}
	return def
}

// Bool returns a boolean setting or def when unset or malformed.
func (s *Store) Bool(key string, def bool) bool {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	var b bool
	if errUnmarshal := json.Unmarshal(raw, &b); errUnmarshal == nil {
		return b
	}
	if parsed, errParse := strconv.ParseBool(parseString(raw)); errParse == nil {
		return parsed
	}
	return def
}

// Float returns a numeric setting or def when unset or malformed.
func (s *Store) Float(key string, def float64) float64 {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		return f
	}
	if parsed, errParse := strconv.ParseFloat(parseString(raw), 64); errParse == nil {
		return parsed
	}
	return def
}

func (s *Store) raw(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.current.Load().values[strings.TrimSpace(key)]
	if !ok || len(bytes.TrimSpace(v)) == 0 {
		return nil, false
	}
	return v, true
}

// parseString extracts a string from a JSON string or a { "value": ... } wrapper.
func parseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseString(wrapper.Value)
	}
	return ""
}

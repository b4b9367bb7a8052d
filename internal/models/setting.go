package models

import (
	"encoding/json"
	"time"
)

// Setting stores an operational key/value entry edited from the back office.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey" json:"key"`                    // Setting key.
	Value     json.RawMessage `gorm:"type:jsonb" json:"value"`                                    // JSON-encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP" json:"updated_at"` // Last update timestamp.
}

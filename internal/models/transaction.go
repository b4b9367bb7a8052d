package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionRecharge  TransactionType = "RECHARGE"
	TransactionDeduction TransactionType = "DEDUCTION"
)

// TransactionStatus is the review state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionApproved TransactionStatus = "APPROVED"
	TransactionRejected TransactionStatus = "REJECTED"
)

// Transaction is a ledger entry. Amount is always positive; Type implies the sign.
type Transaction struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`           // UUID primary key.
	UserID   string `gorm:"type:varchar(36);not null;index" json:"user_id"` // Owning user.
	Username string `gorm:"type:text;not null;default:''" json:"username"`   // Owner name at creation.

	Type   TransactionType   `gorm:"type:varchar(16);not null;index" json:"type"`   // RECHARGE or DEDUCTION.
	Amount float64           `gorm:"type:decimal(20,2);not null" json:"amount"`     // Positive amount.
	Status TransactionStatus `gorm:"type:varchar(16);not null;index" json:"status"` // Review state.
	Note   string            `gorm:"type:text;not null;default:''" json:"note"`     // Free-form note.

	AppealID *string `gorm:"type:varchar(36);index" json:"appeal_id,omitempty"` // Appeal charged by a deduction.

	CreatedAt time.Time `gorm:"not null" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"` // Last review timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppealStatus is the lifecycle state of an appeal ticket.
type AppealStatus string

const (
	AppealPending    AppealStatus = "PENDING"
	AppealProcessing AppealStatus = "PROCESSING"
	AppealFollowUp   AppealStatus = "FOLLOW_UP"
	AppealPassed     AppealStatus = "PASSED"
	AppealRejected   AppealStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s AppealStatus) Valid() bool {
	switch s {
	case AppealPending, AppealProcessing, AppealFollowUp, AppealPassed, AppealRejected:
		return true
	}
	return false
}

var appealStatusLabels = map[AppealStatus]string{
	AppealPending:    "待处理",
	AppealProcessing: "处理中",
	AppealFollowUp:   "跟进中",
	AppealPassed:     "申诉通过",
	AppealRejected:   "申诉驳回",
}

// Label is the display name shown to clients.
func (s AppealStatus) Label() string {
	if label, ok := appealStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether s ends the lifecycle.
func (s AppealStatus) Terminal() bool {
	return s == AppealPassed || s == AppealRejected
}

// AccountTypes lists the remote-browser environments a client can submit from.
var AccountTypes = []string{"紫鸟", "战斧", "牛卖", "VPS", "其他"}

// Appeal is one client-submitted account recovery case.
type Appeal struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`           // UUID primary key.
	UserID   string `gorm:"type:varchar(36);not null;index" json:"user_id"` // Owning user.
	Username string `gorm:"type:text;not null;default:''" json:"username"`   // Owner name at submit time.

	AccountType  string `gorm:"type:text;not null" json:"account_type"`             // Remote environment type.
	LoginInfo    string `gorm:"type:text;not null" json:"login_info"`               // Environment login details.
	EmailAccount string `gorm:"type:text;not null" json:"email_account"`            // Mailbox bound to the store.
	EmailPass    string `gorm:"type:text;not null" json:"email_pass"`               // Mailbox credential.
	Description  string `gorm:"type:text;not null;default:''" json:"description"`   // Client notes.
	Screenshot   string `gorm:"type:text;not null;default:''" json:"screenshot"`    // Evidence public URL.

	Status          AppealStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"` // Lifecycle state.
	StatusDetail    string       `gorm:"type:text;not null;default:''" json:"status_detail"`            // Follow-up annotation.
	AdminNotes      string       `gorm:"type:text;not null;default:''" json:"admin_notes"`              // Notes shown to the client.
	DeductionAmount float64      `gorm:"type:decimal(20,2);not null;default:0" json:"deduction_amount"` // Charged on PASSED.

	CreatedAt time.Time `gorm:"not null" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"` // Last mutation timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (a *Appeal) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ShortID returns the last six characters of the id, used on client-facing tickets.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KnowledgeBaseItem is a prior successful POA kept as a drafting reference.
type KnowledgeBaseItem struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"` // UUID primary key.

	Type    string `gorm:"type:varchar(32);not null;index:idx_kb_type_sub" json:"type"`     // POA type.
	SubType string `gorm:"type:text;not null;index:idx_kb_type_sub" json:"sub_type"`        // POA subtype label.
	Title   string `gorm:"type:text;not null;uniqueIndex" json:"title"`                     // Unique title.
	Content string `gorm:"type:text;not null" json:"content"`                               // Letter body.

	Tags       datatypes.JSONSlice[string] `gorm:"type:json" json:"tags"`                     // Free-form tags.
	UsageCount int                         `gorm:"not null;default:0;index" json:"usage_count"` // Times used as a reference.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}

// TableName pins the table name.
func (KnowledgeBaseItem) TableName() string { return "knowledge_base_items" }

// BeforeCreate assigns a UUID when none is set.
func (k *KnowledgeBaseItem) BeforeCreate(*gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

package db

import (
	"fmt"

	"github.com/zeyuan/appeal-service/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table used by the portal.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: migrate: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Appeal{},
		&models.Transaction{},
		&models.KnowledgeBaseItem{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}

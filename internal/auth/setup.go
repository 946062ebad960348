package auth

import (
	"gorm.io/gorm"

	"github.com/taskmanager/backend/internal/db"
)

// Migrate creates the app_auth schema, the accounts table and the
// case-insensitive email index that backs the uniqueness invariant.
func Migrate(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "app_auth"); err != nil {
		return err
	}
	if err := d.AutoMigrate(&Account{}); err != nil {
		return err
	}
	return d.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_ci_unique
		ON app_auth.accounts (LOWER(email));
	`).Error
}

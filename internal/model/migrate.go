package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&RegistrationCode{},
		&PaymentGateway{},
		&Payment{},
		&Notification{},
	); err != nil {
		return err
	}

	// Expression and partial indexes are PostgreSQL-only.
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Case-insensitive unique email for non-soft-deleted users.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower " +
			"ON users ((lower(email))) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_payments_user_status ON payments (user_id, status)",
	).Error
}

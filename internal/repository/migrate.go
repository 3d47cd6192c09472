package repository

import "gorm.io/gorm"

// AutoMigrate builds the schema for every entity. Deployments run the
// SQL migrations instead; this keeps embedded databases in step.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&TagEntity{},
		&PhoneCodeEntity{},
		&TimezoneEntity{},
		&MailoutEntity{},
		&CustomerEntity{},
		&MessageEntity{},
	)
}

package model

import (
	"errors"

	"gorm.io/gorm"
)

// Seeded friend status descriptions. Only these three are ever persisted;
// search output additionally uses derived tags that never reach the store.
const (
	StatusFriends = "Friends"
	StatusPending = "Pending"
	StatusBlocked = "Blocked"
)

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&User{},
	&FriendStatus{},
	&Friendship{},
	&Place{},
	&Rating{},
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}

// SeedFriendStatuses inserts the status lookup rows if they are missing.
// Safe to call on every startup.
func SeedFriendStatuses(db *gorm.DB) error {
	for _, desc := range []string{StatusFriends, StatusPending, StatusBlocked} {
		var existing FriendStatus
		err := db.Where("description = ?", desc).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&FriendStatus{Description: desc}).Error; err != nil {
			return err
		}
	}
	return nil
}

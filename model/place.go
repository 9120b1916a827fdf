package model

import "time"

// Place is a restaurant known to the rating system, keyed by the external
// places API identifier.
type Place struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GoogleID    string    `gorm:"uniqueIndex;size:128;not null" json:"google_id"`
	DisplayName string    `gorm:"size:128;not null" json:"display_name"`
	Address     string    `gorm:"size:256;not null" json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

package model

import "time"

// Rating is one user's scores for one place. Food, price and vibe are each
// on a 1-5 scale.
type Rating struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	PlaceID   int64     `gorm:"index;not null" json:"place_id"`
	Food      int       `gorm:"not null" json:"food"`
	Price     int       `gorm:"not null" json:"price"`
	Vibe      int       `gorm:"not null" json:"vibe"`
	Message   *string   `gorm:"size:512" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

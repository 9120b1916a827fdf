package model

import (
	"fmt"
	"time"
)

// FriendStatus is a seeded lookup row describing a relationship state.
// The seed data is Friends(1), Pending(2), Blocked(3); nothing else ever
// creates rows in this table.
type FriendStatus struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Description string `gorm:"uniqueIndex;size:32;not null" json:"description"`
}

// Friendship is a relationship attempt or established relationship between
// exactly two distinct users. RequesterID/TargetID keep their original
// orientation for the whole life of the row: only the target may accept.
// PairKey normalizes the unordered pair so the unique index rejects a
// second row for the same two users regardless of direction.
type Friendship struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64     `gorm:"index;not null" json:"requester_id"`
	TargetID    int64     `gorm:"index;not null" json:"target_id"`
	PairKey     string    `gorm:"uniqueIndex;size:42;not null" json:"-"`
	StatusID    int64     `gorm:"not null" json:"status_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PairKeyFor returns the normalized key for the unordered pair {a, b}.
func PairKeyFor(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CounterpartID resolves the other side of the relationship relative to the
// given user. The caller must already know userID is one of the two sides.
func (f Friendship) CounterpartID(userID int64) int64 {
	if f.RequesterID == userID {
		return f.TargetID
	}
	return f.RequesterID
}

package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User is an account known to this backend. Handle is the stable external
// identity assigned at signup; it never changes even if the email does.
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Handle       string         `gorm:"uniqueIndex;size:64;not null" json:"handle"`
	Email        string         `gorm:"size:128;not null" json:"email"`
	PasswordHash string         `gorm:"size:64;not null" json:"-"`
	FirstName    string         `gorm:"size:64;not null" json:"first_name"`
	LastName     string         `gorm:"size:64;not null" json:"last_name"`
	Groups       datatypes.JSON `json:"groups"` // role tags, e.g. ["admin"]
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName is the "first last" string the search engine ranks against.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// InGroup reports whether the user carries the given role tag.
func (u User) InGroup(name string) bool {
	if len(u.Groups) == 0 {
		return false
	}
	var groups []string
	if err := json.Unmarshal(u.Groups, &groups); err != nil {
		return false
	}
	for _, g := range groups {
		if g == name {
			return true
		}
	}
	return false
}

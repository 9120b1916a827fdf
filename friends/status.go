package friends

import "github.com/platemate/server/model"

// Status is a relationship state as seen by callers. Friends, Pending and
// Blocked exist as seeded store rows; NotFriends and Unknown are derived
// tags used only in search output.
type Status string

const (
	StatusFriends    Status = model.StatusFriends
	StatusPending    Status = model.StatusPending
	StatusBlocked    Status = model.StatusBlocked
	StatusNotFriends Status = "Not friends"
	StatusUnknown    Status = "Unknown"
)

// Direction selects which side of pending requests a view returns.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionBoth     Direction = "both"
)

// Valid reports whether d is one of the three enumerated directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionBoth:
		return true
	}
	return false
}

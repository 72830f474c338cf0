package model

import (
	"time"
)

// AdminSession is a logged-in operator. Only the HMAC of the cookie token is
// stored. The door fields trail what the operator did with the session.
type AdminSession struct {
	ID          string     `db:"id" json:"id"`
	TokenHash   string     `db:"token_hash" json:"-"`
	LoginIP     string     `db:"login_ip" json:"loginIp"`
	DoorsOpened int        `db:"doors_opened" json:"doorsOpened"`
	LastDoor    *int       `db:"last_door" json:"lastDoor,omitempty"`
	LastDoorAt  *time.Time `db:"last_door_at" json:"lastDoorAt,omitempty"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

func (s *AdminSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

type CreateAdminSessionParams struct {
	TokenHash string
	LoginIP   string
	ExpiresAt time.Time
}

// DoorOpenedParams records a door an operator opened from the dashboard.
type DoorOpenedParams struct {
	SessionID string
	Door      int
	At        time.Time
}

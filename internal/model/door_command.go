package model

import "time"

const (
	MinDoorNumber = 1
	MaxDoorNumber = 20

	DoorCommandOpen = "open"
)

type DoorCommand struct {
	ID         int64     `db:"id" json:"id"`
	DoorNumber int       `db:"door_number" json:"door_number"`
	Command    string    `db:"command" json:"command"`
	CreatedAt  time.Time `db:"created_at" json:"timestamp"`
	Executed   bool      `db:"executed" json:"executed"`
}

// State derives the lifecycle state at read time. A command is pending only
// while unexecuted and younger than ttl.
func (c DoorCommand) State(now time.Time, ttl time.Duration) DoorCommandState {
	if c.Executed {
		return DoorCommandExecuted
	}
	if c.CreatedAt.After(now.Add(-ttl)) {
		return DoorCommandPending
	}
	return DoorCommandExpired
}

type CreateDoorCommandParams struct {
	DoorNumber int
	Command    string
	CreatedAt  time.Time
}

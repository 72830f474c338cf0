package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoorCommandState(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ttl := 60 * time.Second

	tests := []struct {
		name     string
		cmd      DoorCommand
		expected DoorCommandState
	}{
		{"fresh command is pending", DoorCommand{CreatedAt: now.Add(-10 * time.Second)}, DoorCommandPending},
		{"59s old is pending", DoorCommand{CreatedAt: now.Add(-59 * time.Second)}, DoorCommandPending},
		{"exactly ttl old is expired", DoorCommand{CreatedAt: now.Add(-60 * time.Second)}, DoorCommandExpired},
		{"old command is expired", DoorCommand{CreatedAt: now.Add(-61 * time.Second)}, DoorCommandExpired},
		{"executed wins over age", DoorCommand{CreatedAt: now.Add(-time.Hour), Executed: true}, DoorCommandExecuted},
		{"executed fresh command", DoorCommand{CreatedAt: now, Executed: true}, DoorCommandExecuted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.State(now, ttl))
		})
	}
}

func TestParseOrderAction(t *testing.T) {
	tests := []struct {
		in       string
		expected OrderActionKind
		ok       bool
	}{
		{"", OrderActionPickup, true},
		{"pickup", OrderActionPickup, true},
		{"return", OrderActionReturn, true},
		{"dropoff", OrderActionReturn, true},
		{"steal", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOrderAction(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCodeKindValid(t *testing.T) {
	assert.True(t, CodeKindPickup.Valid())
	assert.True(t, CodeKindReturn.Valid())
	assert.True(t, CodeKindOpening.Valid())
	assert.False(t, CodeKind("door").Valid())
}

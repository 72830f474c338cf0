package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
	"github.com/sykkeldel/locker-server/internal/sse"
)

const (
	EventDoorCommand = "door_command"

	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// EventPublisher fans events out to operator dashboards.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event sse.Event) error
}

// DoorCommandView is a command with its state derived at read time.
type DoorCommandView struct {
	model.DoorCommand
	State model.DoorCommandState `json:"state"`
}

// DoorQueue is the open-door log the locker controller polls. Commands are
// visible for ttl after creation and are acknowledged at most once in effect.
type DoorQueue struct {
	repo      repository.DoorCommandRepository
	publisher EventPublisher
	ttl       time.Duration
	now       func() time.Time
}

func NewDoorQueue(repo repository.DoorCommandRepository, publisher EventPublisher, ttl time.Duration) *DoorQueue {
	return &DoorQueue{
		repo:      repo,
		publisher: publisher,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (q *DoorQueue) TTL() time.Duration {
	return q.ttl
}

// Enqueue records an open command for door. The door number is checked
// before storage is touched.
func (q *DoorQueue) Enqueue(ctx context.Context, door int) (*model.DoorCommand, error) {
	if door < model.MinDoorNumber || door > model.MaxDoorNumber {
		return nil, apperrors.DoorOutOfRange(model.MinDoorNumber, model.MaxDoorNumber)
	}

	cmd, err := q.repo.Create(ctx, model.CreateDoorCommandParams{
		DoorNumber: door,
		Command:    model.DoorCommandOpen,
		CreatedAt:  q.now(),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Int64("commandId", cmd.ID).Int("door", door).Msg("door command queued")
	q.publish(ctx, *cmd)
	return cmd, nil
}

// PollPending returns unexecuted commands created in (now-ttl, now], oldest
// first. It never modifies anything.
func (q *DoorQueue) PollPending(ctx context.Context, now time.Time) ([]model.DoorCommand, error) {
	cmds, err := q.repo.ListPending(ctx, now.Add(-q.ttl), now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cmds == nil {
		cmds = []model.DoorCommand{}
	}
	return cmds, nil
}

// Acknowledge marks a command executed. Repeating it, or acknowledging an
// expired command, succeeds.
func (q *DoorQueue) Acknowledge(ctx context.Context, id int64) error {
	cmd, err := q.repo.MarkExecuted(ctx, id)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		return apperrors.NoRowsAffected(fmt.Sprintf("door command %d", id)).WithCause(err)
	}
	if err != nil {
		return apperrors.Database(err)
	}

	log.Info().
		Int64("commandId", id).
		Int("door", cmd.DoorNumber).
		Msg("door command acknowledged")
	q.publish(ctx, *cmd)
	return nil
}

// ListRecent returns the newest commands with their derived state.
func (q *DoorQueue) ListRecent(ctx context.Context, limit int) ([]DoorCommandView, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	cmds, err := q.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	now := q.now()
	views := make([]DoorCommandView, 0, len(cmds))
	for _, c := range cmds {
		views = append(views, DoorCommandView{DoorCommand: c, State: c.State(now, q.ttl)})
	}
	return views, nil
}

func (q *DoorQueue) publish(ctx context.Context, cmd model.DoorCommand) {
	if q.publisher == nil {
		return
	}
	state := model.DoorCommandPending
	if cmd.Executed {
		state = model.DoorCommandExecuted
	}
	ev, err := sse.NewEvent(EventDoorCommand, map[string]any{
		"id":          cmd.ID,
		"door_number": cmd.DoorNumber,
		"state":       state,
	})
	if err != nil {
		return
	}
	if err := q.publisher.Publish(ctx, sse.TopicDoors, ev); err != nil {
		log.Warn().Err(err).Int64("commandId", cmd.ID).Msg("failed to publish door event")
	}
}

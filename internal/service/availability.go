package service

import (
	"context"
	"time"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// AvailabilityService answers whether a staff member has a booking today.
type AvailabilityService struct {
	appts repository.AppointmentRepository
	loc   *time.Location
	now   func() time.Time
}

func NewAvailabilityService(appts repository.AppointmentRepository, loc *time.Location) *AvailabilityService {
	return &AvailabilityService{appts: appts, loc: loc, now: time.Now}
}

// SameDay checks for any appointment overlapping today, where today is the
// calendar day in the configured timezone.
func (s *AvailabilityService) SameDay(ctx context.Context, staffID, serviceID int64) (*model.Availability, error) {
	if staffID < 1 || serviceID < 1 {
		return nil, apperrors.InvalidIdentifier("staff_id", "service_id")
	}

	dayStart, dayEnd := dayBounds(s.now(), s.loc)
	n, err := s.appts.CountOverlapping(ctx, serviceID, staffID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	status := model.AvailabilityAvailable
	if n > 0 {
		status = model.AvailabilityBooked
	}
	return &model.Availability{
		Date:      dayStart.Format(time.DateOnly),
		StaffID:   staffID,
		ServiceID: serviceID,
		Status:    status,
	}, nil
}

// dayBounds returns 00:00:00 and 23:59:59 of t's calendar day in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	return start, end
}

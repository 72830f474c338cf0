package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// WindowResolution is the access window chosen for an appointment.
type WindowResolution struct {
	Start     time.Time
	End       time.Time
	Shifted   bool
	Conflicts []model.Appointment
}

// BookingResolver decides whether an appointment's access window may begin
// immediately instead of at the booked start.
type BookingResolver struct {
	appts   repository.AppointmentRepository
	horizon time.Duration
}

func NewBookingResolver(appts repository.AppointmentRepository, horizon time.Duration) *BookingResolver {
	return &BookingResolver{appts: appts, horizon: horizon}
}

// FindConflicts returns siblings on the same service and staff whose start or
// end falls inside [now, appt.StartAt], bounds included.
func FindConflicts(appt model.Appointment, siblings []model.Appointment, now time.Time) []model.Appointment {
	var conflicts []model.Appointment
	for _, s := range siblings {
		if s.ID == appt.ID || s.ServiceID != appt.ServiceID || s.StaffID != appt.StaffID {
			continue
		}
		if within(s.StartAt, now, appt.StartAt) || within(s.EndAt, now, appt.StartAt) {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// ResolveWindow moves the appointment start to now when it begins within the
// horizon and nothing else is booked in between. Appointments that are
// already running are moved too; one that has already ended keeps its times. It never fails: a store
// error leaves the booked window in place.
func (r *BookingResolver) ResolveWindow(
	ctx context.Context,
	orderID int64,
	appt model.Appointment,
	siblings []model.Appointment,
	now time.Time,
) WindowResolution {
	res := WindowResolution{Start: appt.StartAt, End: appt.EndAt}

	if appt.StartAt.Sub(now) >= r.horizon {
		return res
	}
	// Past due: now is after the end, and a window cannot end before it starts.
	if appt.EndAt.Before(now) {
		log.Warn().
			Int64("orderId", orderID).
			Int64("appointmentId", appt.ID).
			Time("end", appt.EndAt).
			Msg("appointment already ended, keeping booked window")
		return res
	}

	res.Conflicts = FindConflicts(appt, siblings, now)
	if len(res.Conflicts) > 0 {
		log.Warn().
			Int64("orderId", orderID).
			Int64("appointmentId", appt.ID).
			Int("conflicts", len(res.Conflicts)).
			Msg("appointment start not moved: conflicting bookings")
		return res
	}

	if err := r.appts.UpdateStart(ctx, appt.ID, now); err != nil {
		log.Error().
			Err(err).
			Int64("orderId", orderID).
			Int64("appointmentId", appt.ID).
			Msg("failed to move appointment start, keeping booked window")
		return res
	}

	log.Info().
		Int64("orderId", orderID).
		Int64("appointmentId", appt.ID).
		Time("bookedStart", appt.StartAt).
		Time("start", now).
		Msg("appointment start moved to now")

	res.Start = now
	res.Shifted = true
	return res
}

package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sykkeldel/locker-server/internal/model"
)

// AppointmentRepository reads and shifts appointments in the booking store.
// The booking platform owns the table; only start_at is ever written.
type AppointmentRepository interface {
	FindLatest(ctx context.Context, serviceID, staffID int64) (*model.Appointment, error)
	FindSiblings(ctx context.Context, serviceID, staffID, excludeID int64) ([]model.Appointment, error)
	UpdateStart(ctx context.Context, id int64, startAt time.Time) error
	CountOverlapping(ctx context.Context, serviceID, staffID int64, from, to time.Time) (int, error)
}

type appointmentRepo struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) FindLatest(ctx context.Context, serviceID, staffID int64) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, `
		SELECT id, service_id, staff_id, start_at, end_at
		FROM appointments
		WHERE service_id = $1 AND staff_id = $2
		ORDER BY id DESC
		LIMIT 1
	`, serviceID, staffID)
	return HandleNotFound(&appt, err)
}

func (r *appointmentRepo) FindSiblings(ctx context.Context, serviceID, staffID, excludeID int64) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.SelectContext(ctx, &appts, `
		SELECT id, service_id, staff_id, start_at, end_at
		FROM appointments
		WHERE service_id = $1 AND staff_id = $2 AND id <> $3
		ORDER BY start_at ASC
	`, serviceID, staffID, excludeID)
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *appointmentRepo) UpdateStart(ctx context.Context, id int64, startAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE appointments SET start_at = $2 WHERE id = $1`, id, startAt)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

func (r *appointmentRepo) CountOverlapping(ctx context.Context, serviceID, staffID int64, from, to time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM appointments
		WHERE service_id = $1 AND staff_id = $2
		  AND start_at <= $4 AND end_at >= $3
	`, serviceID, staffID, from, to)
	if err != nil {
		return 0, err
	}
	return n, nil
}

package model

import "time"

type Appointment struct {
	ID        int64     `db:"id" json:"id"`
	ServiceID int64     `db:"service_id" json:"serviceId"`
	StaffID   int64     `db:"staff_id" json:"staffId"`
	StartAt   time.Time `db:"start_at" json:"startAt"`
	EndAt     time.Time `db:"end_at" json:"endAt"`
}

type Availability struct {
	Date      string             `json:"date"`
	StaffID   int64              `json:"staff_id"`
	ServiceID int64              `json:"service_id"`
	Status    AvailabilityStatus `json:"status"`
}

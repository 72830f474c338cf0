package model

import "time"

// AccessCode is an issued locker code. Codes are never reused or deleted.
type AccessCode struct {
	ID       int64     `db:"id" json:"id"`
	OrderID  int64     `db:"order_id" json:"orderId"`
	Kind     CodeKind  `db:"kind" json:"kind"`
	Code     string    `db:"code" json:"code"`
	IssuedAt time.Time `db:"issued_at" json:"issuedAt"`
}

type CreateAccessCodeParams struct {
	OrderID  int64
	Kind     CodeKind
	Code     string
	IssuedAt time.Time
}

type AccessWindow struct {
	OrderID   int64     `db:"order_id" json:"orderId"`
	StartAt   time.Time `db:"start_at" json:"startAt"`
	EndAt     time.Time `db:"end_at" json:"endAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateAccessWindowParams struct {
	OrderID int64
	StartAt time.Time
	EndAt   time.Time
}

// IssuedCode pairs a code with its opening window, if any, for controller sync.
type IssuedCode struct {
	AccessCode
	WindowStart *time.Time `db:"window_start" json:"windowStart,omitempty"`
	WindowEnd   *time.Time `db:"window_end" json:"windowEnd,omitempty"`
}

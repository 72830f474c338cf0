package model

import "time"

type OrderAction struct {
	OrderID   int64           `db:"order_id" json:"orderId"`
	Action    OrderActionKind `db:"action" json:"action"`
	ActionAt  time.Time       `db:"action_at" json:"actionAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

package model

type CodeKind string

const (
	CodeKindPickup  CodeKind = "pickup"
	CodeKindReturn  CodeKind = "return"
	CodeKindOpening CodeKind = "opening"
)

func (k CodeKind) Valid() bool {
	switch k {
	case CodeKindPickup, CodeKindReturn, CodeKindOpening:
		return true
	}
	return false
}

type OrderActionKind string

const (
	OrderActionPickup OrderActionKind = "pickup"
	OrderActionReturn OrderActionKind = "return"
)

// ParseOrderAction normalizes the action names controllers report. An empty
// action means pickup and "dropoff" is the same as return.
func ParseOrderAction(s string) (OrderActionKind, bool) {
	switch s {
	case "", "pickup":
		return OrderActionPickup, true
	case "return", "dropoff":
		return OrderActionReturn, true
	}
	return "", false
}

type DoorCommandState string

const (
	DoorCommandPending  DoorCommandState = "pending"
	DoorCommandExecuted DoorCommandState = "executed"
	DoorCommandExpired  DoorCommandState = "expired"
)

type AvailabilityStatus string

const (
	AvailabilityBooked    AvailabilityStatus = "booked"
	AvailabilityAvailable AvailabilityStatus = "available"
)

package domain

import "time"

// SessionStatus is the coarse lifecycle state of a session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "Running"
	SessionCompleted SessionStatus = "Completed"
	SessionFailed    SessionStatus = "Failed"
)

// Terminal reports whether the status ends the session.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// Session is the status record of one wallet evaluation.
// It is written at start and once more with the terminal status.
type Session struct {
	ID        string
	Wallet    string
	Slot      string
	Status    SessionStatus
	StartTime time.Time
	EndTime   *time.Time
}

// SlotState is the occupancy of an execution slot.
type SlotState string

const (
	SlotFree  SlotState = "FREE"
	SlotInUse SlotState = "IN_USE"
)

// Slot is one entry of the shared slot table.
type Slot struct {
	ID    string
	State SlotState
}

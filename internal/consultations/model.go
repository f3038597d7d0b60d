package consultations

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("consultation not found")
	ErrInvalidTransition = errors.New("invalid consultation transition")
)

// Status walks requested -> accepted -> in_progress -> completed.
// Cancellation is allowed while the work has not started.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions maps each target status to the states it may be entered
// from. Keeping the machine in one table is what the per-handler status
// checks in each action guard against.
var transitions = map[Status][]Status{
	StatusAccepted:   {StatusRequested},
	StatusInProgress: {StatusAccepted},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusRequested, StatusAccepted},
}

// CanTransition reports whether a consultation in from may move to
// target.
func CanTransition(from, target Status) bool {
	for _, s := range transitions[target] {
		if s == from {
			return true
		}
	}
	return false
}

// AllowedFrom returns the states target may be entered from.
func AllowedFrom(target Status) []Status {
	return transitions[target]
}

type Consultation struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id"`
	ProviderID  string     `json:"provider_id"`
	ServiceType string     `json:"service_type"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Price       *float64   `json:"price"`
	Notes       *string    `json:"notes"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnerID treats the requesting client as the owner for update and
// delete purposes. The provider side has its own transition rights
// enforced in the handlers.
func (c *Consultation) OwnerID() string { return c.ClientID }

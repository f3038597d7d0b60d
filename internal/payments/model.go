package payments

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid payment transition")
)

// Status moves pending -> completed | failed, and completed -> refunded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var transitions = map[Status][]Status{
	StatusCompleted: {StatusPending},
	StatusFailed:    {StatusPending},
	StatusRefunded:  {StatusCompleted},
}

func CanTransition(from, target Status) bool {
	for _, s := range transitions[target] {
		if s == from {
			return true
		}
	}
	return false
}

func AllowedFrom(target Status) []Status {
	return transitions[target]
}

// PayableKind ties a payment to the thing being paid for.
type PayableKind string

const (
	PayableInvestment   PayableKind = "investment"
	PayableConsultation PayableKind = "consultation"
)

type Payment struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	PayableType    PayableKind `json:"payable_type"`
	PayableID      string      `json:"payable_id"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	Method         string      `json:"method"`
	Status         Status      `json:"status"`
	TransactionRef *string     `json:"transaction_ref"`
	FailureReason  *string     `json:"failure_reason"`
	PaidAt         *time.Time  `json:"paid_at"`
	FailedAt       *time.Time  `json:"failed_at"`
	RefundedAt     *time.Time  `json:"refunded_at"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (p *Payment) OwnerID() string { return p.UserID }

package funding

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("funding resource not found")
	ErrDuplicate         = errors.New("duplicate funding resource")
	ErrInvalidTransition = errors.New("invalid verification transition")
	ErrProposalClosed    = errors.New("proposal is not accepting investments")
)

// ProposalStatus is the lifecycle of a community-funded project.
type ProposalStatus string

const (
	ProposalActive ProposalStatus = "active"
	ProposalFunded ProposalStatus = "funded"
	ProposalClosed ProposalStatus = "closed"
)

type Proposal struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	OrganizationID *string        `json:"organization_id"`
	CategoryID     *string        `json:"category_id"`
	Title          string         `json:"title"`
	Slug           string         `json:"slug"`
	Description    string         `json:"description"`
	Location       *string        `json:"location"`
	FundingGoal    float64        `json:"funding_goal"`
	RaisedAmount   float64        `json:"raised_amount"`
	InvestorsCount int            `json:"investors_count"`
	Status         ProposalStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (p *Proposal) OwnerID() string { return p.UserID }

type Investment struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal_id"`
	UserID     string    `json:"user_id"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommissionType is fixed; a proposal carries at most one commission of
// each type.
type CommissionType string

const (
	CommissionPlatform   CommissionType = "plataforma"
	CommissionManagement CommissionType = "gestion"
	CommissionLegal      CommissionType = "legal"
)

type Commission struct {
	ID         string         `json:"id"`
	ProposalID string         `json:"proposal_id"`
	Type       CommissionType `json:"type"`
	Rate       float64        `json:"rate"`
	CreatedAt  time.Time      `json:"created_at"`
}

// VerificationStatus moves pending -> in_review -> approved | rejected.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationInReview VerificationStatus = "in_review"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type Verification struct {
	ID              string             `json:"id"`
	ProposalID      string             `json:"proposal_id"`
	Status          VerificationStatus `json:"status"`
	ReviewerID      *string            `json:"reviewer_id"`
	Notes           *string            `json:"notes"`
	Score           *int               `json:"score"`
	RejectionReason *string            `json:"rejection_reason"`
	ReviewedAt      *time.Time         `json:"reviewed_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// verificationPrecondition returns the status a verification must be in
// before moving to target, or "" if target is never a valid destination.
func verificationPrecondition(target VerificationStatus) VerificationStatus {
	switch target {
	case VerificationInReview:
		return VerificationPending
	case VerificationApproved, VerificationRejected:
		return VerificationInReview
	default:
		return ""
	}
}

package subscription

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCancelled Status = "cancelled"
)

// Subscription is one minute-balance row. A user can end up with several
// active rows; the aggregator and the duplicate resolver deal with that.
type Subscription struct {
	ID                     string    `json:"id" db:"id"`
	UserID                 string    `json:"userId" db:"user_id"`
	Tier                   Tier      `json:"tier" db:"tier"`
	Status                 Status    `json:"status" db:"status"`
	InterviewTimeRemaining int       `json:"interviewTimeRemaining" db:"interview_time_remaining"`
	InterviewTimeTotal     int       `json:"interviewTimeTotal" db:"interview_time_total"`
	LeftoverSeconds        int       `json:"leftoverSeconds" db:"leftover_seconds"`
	CreatedAt              time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time `json:"updatedAt" db:"updated_at"`
}

// Balance is the aggregated view over all of a user's active rows.
type Balance struct {
	TotalMinutesRemaining int           `json:"totalMinutesRemaining"`
	TotalMinutesGranted   int           `json:"totalMinutesGranted"`
	Tier                  Tier          `json:"tier"`
	Primary               *Subscription `json:"primarySubscription"`
}

// DeductionResult reports what a single ledger deduction actually did.
type DeductionResult struct {
	MinutesDeducted  int  `json:"minutesDeducted"`
	MinutesRemaining int  `json:"minutesRemaining"`
	LeftoverSeconds  int  `json:"leftoverSeconds"`
	Exhausted        bool `json:"exhausted"`
}

// ResolutionReport summarizes one duplicate-resolution pass.
type ResolutionReport struct {
	Primary          *Subscription `json:"primary"`
	DeactivatedCount int           `json:"deactivatedCount"`
	FailedIDs        []string      `json:"failedIds,omitempty"`
}

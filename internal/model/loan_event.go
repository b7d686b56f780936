package model

import "time"

// LoanEventKind names a step in a loan's history.
type LoanEventKind string

const (
	LoanEventRequested LoanEventKind = "requested"
	LoanEventApproved  LoanEventKind = "approved"
	LoanEventRejected  LoanEventKind = "rejected"
	LoanEventReturned  LoanEventKind = "returned"
)

// LoanEvent is an audit entry written in the same transaction as the change it records.
type LoanEvent struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	LoanID    uint          `json:"loan_id" gorm:"not null;index"`
	Kind      LoanEventKind `json:"kind" gorm:"type:varchar(20);not null;index"`
	Message   string        `json:"message,omitempty" gorm:"type:text"`
	CreatedAt time.Time     `json:"created_at"`

	// Relations
	Loan *Loan `json:"-" gorm:"foreignKey:LoanID;constraint:OnDelete:CASCADE"`
}

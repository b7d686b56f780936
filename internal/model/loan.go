package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the approval state of a loan request.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected:
		return true
	}
	return false
}

// Loan is a request by a user to borrow copies of a book.
// Status moves once from pending to approved or rejected.
type Loan struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	UserID     uint            `json:"user_id" gorm:"not null;index"`
	BookID     uint            `json:"book_id" gorm:"not null;index"`
	Quantity   int             `json:"quantity" gorm:"not null;default:1"`
	StartDate  time.Time       `json:"start_date" gorm:"not null"`
	DueDate    time.Time       `json:"due_date" gorm:"not null"`
	ReturnedAt *time.Time      `json:"returned_at"`
	Status     LoanStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	DecidedAt  *time.Time      `json:"decided_at"`
	LateFee    decimal.Decimal `json:"late_fee" gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relations
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Book *Book `json:"book,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT"`
}

// IsOpen reports whether the copies have not come back yet.
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinlecture/internal/model"
)

// LoanEventRepository defines loan history persistence operations.
type LoanEventRepository interface {
	Create(ctx context.Context, event *model.LoanEvent) error
	ListByLoan(ctx context.Context, loanID uint) ([]model.LoanEvent, error)
}

type loanEventRepository struct {
	db *gorm.DB
}

// NewLoanEventRepository creates a new loan event repository.
func NewLoanEventRepository(db *gorm.DB) LoanEventRepository {
	return &loanEventRepository{db: db}
}

// Create appends a history entry.
func (r *loanEventRepository) Create(ctx context.Context, event *model.LoanEvent) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error
}

// ListByLoan returns a loan's history, oldest first.
func (r *loanEventRepository) ListByLoan(ctx context.Context, loanID uint) ([]model.LoanEvent, error) {
	var events []model.LoanEvent
	if err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).
		Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinlecture/internal/model"
)

// LoanFilter narrows a loan listing.
type LoanFilter struct {
	Status   model.LoanStatus
	UserID   uint
	BookID   uint
	OpenOnly bool
	Page     Page
}

// LoanRepository defines loan persistence operations.
type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	Update(ctx context.Context, loan *model.Loan) error
	Delete(ctx context.Context, id uint) error
	// FindByID loads a loan with its book and user expanded.
	FindByID(ctx context.Context, id uint) (*model.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error)
	List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error)
	CountOpen(ctx context.Context) (int64, error)
	CountByBook(ctx context.Context, bookID uint) (int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	// SetStatus moves a pending loan to status. It reports false when the
	// loan was no longer pending.
	SetStatus(ctx context.Context, id uint, status model.LoanStatus, at time.Time) (bool, error)
	// MarkReturned closes an approved open loan. It reports false when the
	// loan was not approved or already returned.
	MarkReturned(ctx context.Context, id uint, at time.Time, lateFee decimal.Decimal) (bool, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan.
func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error
}

// Update saves loan columns without touching the expanded book or user.
func (r *loanRepository) Update(ctx context.Context, loan *model.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(loan).Error
}

// Delete removes a loan and its history.
func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", id).Delete(&model.LoanEvent{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Loan{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindByID finds a loan by ID.
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Preload("Book").Preload("User").
		First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindByIDForUpdate finds a loan by ID with a row-level lock.
func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// List returns a page of loans, newest first, with book and user expanded.
func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Loan{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		q = q.Where("book_id = ?", filter.BookID)
	}
	if filter.OpenOnly {
		q = q.Where("returned_at IS NULL")
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var loans []model.Loan
	if err := filter.Page.apply(q.Preload("Book").Preload("User").Order("id DESC")).
		Find(&loans).Error; err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

// CountOpen counts loans whose copies have not been returned.
func (r *loanRepository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Loan{}).Where("returned_at IS NULL").Count(&n).Error
	return n, err
}

func (r *loanRepository) CountByBook(ctx context.Context, bookID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Loan{}).Where("book_id = ?", bookID).Count(&n).Error
	return n, err
}

func (r *loanRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Loan{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// SetStatus records a decision with a guard on the pending state.
func (r *loanRepository) SetStatus(ctx context.Context, id uint, status model.LoanStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Loan{}).
		Where("id = ? AND status = ?", id, model.LoanStatusPending).
		Updates(map[string]interface{}{"status": status, "decided_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkReturned records the return with a guard on approved, open loans.
func (r *loanRepository) MarkReturned(ctx context.Context, id uint, at time.Time, lateFee decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Loan{}).
		Where("id = ? AND status = ? AND returned_at IS NULL", id, model.LoanStatusApproved).
		Updates(map[string]interface{}{"returned_at": at, "late_fee": lateFee})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

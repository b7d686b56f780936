package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinlecture/internal/cache"
	apperrors "coinlecture/internal/errors"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
)

// LoanInput is a loan request. UserID is honoured only for admins acting on
// behalf of a reader; everyone else borrows for themselves.
type LoanInput struct {
	UserID    uint
	BookID    uint
	Quantity  int
	StartDate time.Time
	DueDate   time.Time
}

// LoanUpdate changes a pending loan. Nil fields are left as they are.
type LoanUpdate struct {
	Quantity  *int
	StartDate *time.Time
	DueDate   *time.Time
}

// LoanService handles loan requests, decisions and returns.
type LoanService interface {
	Request(ctx context.Context, actor Actor, in LoanInput) (*model.Loan, error)
	List(ctx context.Context, filter repository.LoanFilter) ([]model.Loan, int64, error)
	ListForUser(ctx context.Context, userID uint, page repository.Page) ([]model.Loan, int64, error)
	Get(ctx context.Context, actor Actor, id uint) (*model.Loan, error)
	Update(ctx context.Context, id uint, in LoanUpdate) (*model.Loan, error)
	Delete(ctx context.Context, id uint) error
	// Decide approves or rejects a pending loan. Approval takes the copies
	// off the shelf in the same transaction.
	Decide(ctx context.Context, id uint, approve bool) (*model.Loan, error)
	// Return closes an approved loan, restocks its copies and charges the
	// late fee.
	Return(ctx context.Context, id uint) (*model.Loan, error)
	History(ctx context.Context, actor Actor, id uint) ([]model.LoanEvent, error)
}

type loanService struct {
	repos         *repository.Repositories
	cache         *cache.Client
	lateFeePerDay decimal.Decimal
	log           *zap.Logger
	now           func() time.Time
}

// NewLoanService builds a LoanService.
func NewLoanService(repos *repository.Repositories, cache *cache.Client, lateFeePerDay decimal.Decimal, log *zap.Logger) LoanService {
	if log == nil {
		log = zap.NewNop()
	}
	return &loanService{
		repos:         repos,
		cache:         cache,
		lateFeePerDay: lateFeePerDay,
		log:           log,
		now:           time.Now,
	}
}

func (s *loanService) Request(ctx context.Context, actor Actor, in LoanInput) (*model.Loan, error) {
	userID := actor.UserID
	if actor.Admin && in.UserID != 0 {
		userID = in.UserID
	}
	if in.Quantity < 1 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if !in.DueDate.After(in.StartDate) {
		return nil, apperrors.ErrInvalidDates
	}

	loan := &model.Loan{
		UserID:    userID,
		BookID:    in.BookID,
		Quantity:  in.Quantity,
		StartDate: in.StartDate,
		DueDate:   in.DueDate,
		Status:    model.LoanStatusPending,
		LateFee:   decimal.Zero,
	}

	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return notFound(err, apperrors.ErrUserNotFound)
		}
		book, err := tx.Books.FindByID(ctx, in.BookID)
		if err != nil {
			return notFound(err, apperrors.ErrBookNotFound)
		}
		if in.Quantity > book.Copies {
			return apperrors.ErrInsufficientCopies
		}
		if err := tx.Loans.Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return tx.LoanEvents.Create(ctx, &model.LoanEvent{
			LoanID:  loan.ID,
			Kind:    model.LoanEventRequested,
			Message: fmt.Sprintf("%d cop(ies) requested", loan.Quantity),
		})
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, statsCacheKey)
	return s.load(ctx, loan.ID)
}

func (s *loanService) List(ctx context.Context, filter repository.LoanFilter) ([]model.Loan, int64, error) {
	return s.repos.Loans.List(ctx, filter)
}

func (s *loanService) ListForUser(ctx context.Context, userID uint, page repository.Page) ([]model.Loan, int64, error) {
	return s.repos.Loans.List(ctx, repository.LoanFilter{UserID: userID, Page: page})
}

func (s *loanService) Get(ctx context.Context, actor Actor, id uint) (*model.Loan, error) {
	loan, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && loan.UserID != actor.UserID {
		return nil, apperrors.ErrForbidden
	}
	return loan, nil
}

func (s *loanService) Update(ctx context.Context, id uint, in LoanUpdate) (*model.Loan, error) {
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		loan, err := tx.Loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperrors.ErrLoanNotFound)
		}
		if loan.Status != model.LoanStatusPending {
			return apperrors.ErrLoanAlreadyDecided
		}
		if in.Quantity != nil {
			loan.Quantity = *in.Quantity
		}
		if in.StartDate != nil {
			loan.StartDate = *in.StartDate
		}
		if in.DueDate != nil {
			loan.DueDate = *in.DueDate
		}
		if loan.Quantity < 1 {
			return apperrors.ErrInvalidQuantity
		}
		if !loan.DueDate.After(loan.StartDate) {
			return apperrors.ErrInvalidDates
		}
		return tx.Loans.Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Delete removes a loan and its history. Copies of an approved loan that
// was never returned go back on the shelf.
func (s *loanService) Delete(ctx context.Context, id uint) error {
	var bookID uint
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		loan, err := tx.Loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperrors.ErrLoanNotFound)
		}
		bookID = loan.BookID
		if loan.Status == model.LoanStatusApproved && loan.IsOpen() {
			if err := tx.Books.IncrementCopies(ctx, loan.BookID, loan.Quantity); err != nil {
				return fmt.Errorf("restock: %w", err)
			}
		}
		return tx.Loans.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	invalidate(ctx, s.cache, bookCacheKey(bookID), statsCacheKey)
	return nil
}

func (s *loanService) Decide(ctx context.Context, id uint, approve bool) (*model.Loan, error) {
	var bookID uint
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		loan, err := tx.Loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperrors.ErrLoanNotFound)
		}
		if loan.Status != model.LoanStatusPending {
			return apperrors.ErrLoanAlreadyDecided
		}
		bookID = loan.BookID

		status, kind := model.LoanStatusRejected, model.LoanEventRejected
		if approve {
			status, kind = model.LoanStatusApproved, model.LoanEventApproved
			book, err := tx.Books.FindByIDForUpdate(ctx, loan.BookID)
			if err != nil {
				return notFound(err, apperrors.ErrBookNotFound)
			}
			if loan.Quantity > book.Copies {
				return apperrors.ErrInsufficientCopies
			}
			ok, err := tx.Books.DecrementCopies(ctx, loan.BookID, loan.Quantity)
			if err != nil {
				return fmt.Errorf("decrement copies: %w", err)
			}
			if !ok {
				return apperrors.ErrInsufficientCopies
			}
		}

		ok, err := tx.Loans.SetStatus(ctx, id, status, s.now())
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		if !ok {
			return apperrors.ErrLoanAlreadyDecided
		}
		return tx.LoanEvents.Create(ctx, &model.LoanEvent{LoanID: id, Kind: kind})
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientCopies) || errors.Is(err, apperrors.ErrLoanAlreadyDecided) {
			s.log.Info("loan decision refused", zap.Uint("loan_id", id), zap.Bool("approve", approve), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("loan decided", zap.Uint("loan_id", id), zap.Bool("approve", approve))
	invalidate(ctx, s.cache, bookCacheKey(bookID), statsCacheKey)
	return s.load(ctx, id)
}

func (s *loanService) Return(ctx context.Context, id uint) (*model.Loan, error) {
	var bookID uint
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		loan, err := tx.Loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperrors.ErrLoanNotFound)
		}
		if loan.Status != model.LoanStatusApproved {
			return apperrors.ErrLoanNotApproved
		}
		if !loan.IsOpen() {
			return apperrors.ErrLoanAlreadyReturned
		}
		bookID = loan.BookID

		at := s.now()
		fee := LateFee(loan.DueDate, at, s.lateFeePerDay)
		ok, err := tx.Loans.MarkReturned(ctx, id, at, fee)
		if err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		if !ok {
			return apperrors.ErrLoanAlreadyReturned
		}
		if err := tx.Books.IncrementCopies(ctx, loan.BookID, loan.Quantity); err != nil {
			return fmt.Errorf("restock: %w", err)
		}

		msg := ""
		if fee.IsPositive() {
			msg = "late fee " + fee.StringFixed(2)
		}
		return tx.LoanEvents.Create(ctx, &model.LoanEvent{LoanID: id, Kind: model.LoanEventReturned, Message: msg})
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, bookCacheKey(bookID), statsCacheKey)
	return s.load(ctx, id)
}

func (s *loanService) History(ctx context.Context, actor Actor, id uint) ([]model.LoanEvent, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repos.LoanEvents.ListByLoan(ctx, id)
}

func (s *loanService) load(ctx context.Context, id uint) (*model.Loan, error) {
	loan, err := s.repos.Loans.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrLoanNotFound)
	}
	return loan, nil
}

// LateFee charges perDay for every started day between due and returned.
// Loans returned on or before the due date cost nothing.
func LateFee(due, returned time.Time, perDay decimal.Decimal) decimal.Decimal {
	if !returned.After(due) {
		return decimal.Zero
	}
	late := returned.Sub(due)
	days := int64(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return perDay.Mul(decimal.NewFromInt(days))
}

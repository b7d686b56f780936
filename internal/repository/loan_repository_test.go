package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"coinlecture/internal/model"
	"coinlecture/internal/testutil"
)

func TestLoanRepository_ListExpandsRelations(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewLoanRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice@example.com")
	bob := testutil.CreateUser(t, gdb, "bob@example.com")
	book := testutil.CreateBook(t, gdb, "Candide", 5)
	testutil.CreateLoan(t, gdb, alice, book, 1, model.LoanStatusPending)
	testutil.CreateLoan(t, gdb, bob, book, 2, model.LoanStatusApproved)

	loans, total, err := repo.List(ctx, LoanFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, loans[0].Book)
	require.NotNil(t, loans[0].User)
	assert.Equal(t, "Candide", loans[0].Book.Title)
	assert.Equal(t, "alice@example.com", loans[0].User.Email)

	_, total, err = repo.List(ctx, LoanFilter{Status: model.LoanStatusApproved, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	open, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), open)

	n, err := repo.CountByBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = repo.CountByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoanRepository_StatusGuards(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewLoanRepository(gdb)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	user := testutil.CreateUser(t, gdb, "reader@example.com")
	book := testutil.CreateBook(t, gdb, "Zadig", 2)
	loan := testutil.CreateLoan(t, gdb, user, book, 1, model.LoanStatusPending)

	ok, err := repo.MarkReturned(ctx, loan.ID, now, decimal.Zero)
	require.NoError(t, err)
	assert.False(t, ok, "pending loans cannot be returned")

	ok, err = repo.SetStatus(ctx, loan.ID, model.LoanStatusApproved, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetStatus(ctx, loan.ID, model.LoanStatusRejected, now)
	require.NoError(t, err)
	assert.False(t, ok, "decisions are final")

	ok, err = repo.MarkReturned(ctx, loan.ID, now.AddDate(0, 0, 20), decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkReturned(ctx, loan.ID, now, decimal.Zero)
	require.NoError(t, err)
	assert.False(t, ok, "already returned")

	got, err := repo.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusApproved, got.Status)
	require.NotNil(t, got.ReturnedAt)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, got.LateFee.Equal(decimal.NewFromInt(3)))
	assert.False(t, got.IsOpen())
}

func TestLoanRepository_DeleteRemovesHistory(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repos := New(gdb)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "reader@example.com")
	book := testutil.CreateBook(t, gdb, "Zadig", 2)
	loan := testutil.CreateLoan(t, gdb, user, book, 1, model.LoanStatusPending)
	require.NoError(t, repos.LoanEvents.Create(ctx, &model.LoanEvent{LoanID: loan.ID, Kind: model.LoanEventRequested}))

	require.NoError(t, repos.Loans.Delete(ctx, loan.ID))
	_, err := repos.Loans.FindByID(ctx, loan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	events, err := repos.LoanEvents.ListByLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRepositories_WithTransactionRollsBack(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repos := New(gdb)
	ctx := context.Background()
	book := testutil.CreateBook(t, gdb, "Candide", 3)

	err := repos.WithTransaction(ctx, func(ctx context.Context, tx *Repositories) error {
		if _, err := tx.Books.DecrementCopies(ctx, book.ID, 2); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)

	got, err := repos.Books.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Copies)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Get(t *testing.T) {
	books := new(MockBookRepository)
	users := new(MockUserRepository)
	loans := new(MockLoanRepository)
	books.On("Count", mock.Anything).Return(int64(12), nil)
	users.On("Count", mock.Anything).Return(int64(5), nil)
	loans.On("CountOpen", mock.Anything).Return(int64(3), nil)

	st, err := NewStatsService(books, users, loans, nil).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{Books: 12, Users: 5, OpenLoans: 3}, st)
}

func TestStatsService_GetPropagatesErrors(t *testing.T) {
	books := new(MockBookRepository)
	books.On("Count", mock.Anything).Return(int64(0), assert.AnError)

	_, err := NewStatsService(books, new(MockUserRepository), new(MockLoanRepository), nil).Get(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

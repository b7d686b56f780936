package service

import (
	"context"
	"fmt"
	"time"

	"coinlecture/internal/cache"
	"coinlecture/internal/repository"
)

const statsCacheTTL = 30 * time.Second

// Stats are the dashboard counters.
type Stats struct {
	Books     int64 `json:"books"`
	Users     int64 `json:"users"`
	OpenLoans int64 `json:"open_loans"`
}

// StatsService computes dashboard counters.
type StatsService interface {
	Get(ctx context.Context) (*Stats, error)
}

type statsService struct {
	books repository.BookRepository
	users repository.UserRepository
	loans repository.LoanRepository
	cache *cache.Client
}

// NewStatsService builds a StatsService.
func NewStatsService(books repository.BookRepository, users repository.UserRepository, loans repository.LoanRepository, cache *cache.Client) StatsService {
	return &statsService{books: books, users: users, loans: loans, cache: cache}
}

func (s *statsService) Get(ctx context.Context) (*Stats, error) {
	var cached Stats
	if s.cache.GetJSON(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	var (
		st  Stats
		err error
	)
	if st.Books, err = s.books.Count(ctx); err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	if st.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.OpenLoans, err = s.loans.CountOpen(ctx); err != nil {
		return nil, fmt.Errorf("count open loans: %w", err)
	}

	_ = s.cache.SetJSON(ctx, statsCacheKey, st, statsCacheTTL)
	return &st, nil
}

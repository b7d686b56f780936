package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// Page selects a 1-based page of a collection.
type Page struct {
	Page    int
	PerPage int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return q.Limit(p.PerPage).Offset((p.Page - 1) * p.PerPage)
}

// likeEscape is the LIKE escape character; every pattern built by
// likePattern must be matched with ESCAPE '!'. A backslash would need
// different quoting in MySQL and SQLite.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// likePattern builds a lower-cased substring LIKE pattern with the user's
// wildcards escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// Repositories groups the repositories that share one connection or transaction.
type Repositories struct {
	db         *gorm.DB
	Books      BookRepository
	Users      UserRepository
	Loans      LoanRepository
	LoanEvents LoanEventRepository
}

// New builds all repositories on db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:         db,
		Books:      NewBookRepository(db),
		Users:      NewUserRepository(db),
		Loans:      NewLoanRepository(db),
		LoanEvents: NewLoanEventRepository(db),
	}
}

// WithTransaction executes fn within a database transaction. The repositories
// passed to fn are bound to the transaction; fn must not use any other.
func (r *Repositories) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, New(tx))
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinlecture/internal/auth"
	"coinlecture/internal/cache"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
)

// SeedBook is one catalog entry in a seed file.
type SeedBook struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Description     string `json:"description"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publication_year"`
	PageCount       int    `json:"page_count"`
	Language        string `json:"language"`
	Image           string `json:"image"`
	Copies          int    `json:"copies"`
}

// SeedResult counts what a seeding run changed.
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SeedService loads initial data.
type SeedService interface {
	// SeedBooks upserts books keyed by title and author.
	SeedBooks(ctx context.Context, books []SeedBook) (*SeedResult, error)
	// EnsureAdmin creates the account or grants it ROLE_ADMIN.
	EnsureAdmin(ctx context.Context, email, password string) (*model.User, error)
}

type seedService struct {
	repos *repository.Repositories
	cache *cache.Client
	log   *zap.Logger
}

// NewSeedService builds a SeedService.
func NewSeedService(repos *repository.Repositories, cache *cache.Client, log *zap.Logger) SeedService {
	if log == nil {
		log = zap.NewNop()
	}
	return &seedService{repos: repos, cache: cache, log: log}
}

func (s *seedService) SeedBooks(ctx context.Context, books []SeedBook) (*SeedResult, error) {
	res := &SeedResult{}
	var touched []string
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		for _, sb := range books {
			title, author := strings.TrimSpace(sb.Title), strings.TrimSpace(sb.Author)
			if title == "" || author == "" || sb.Copies < 0 {
				res.Skipped++
				continue
			}

			book, err := tx.Books.FindByTitleAndAuthor(ctx, title, author)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				book = &model.Book{}
				apply(book, seedInput(sb))
				if err := tx.Books.Create(ctx, book); err != nil {
					return fmt.Errorf("create %q: %w", title, err)
				}
				res.Created++
			case err != nil:
				return fmt.Errorf("find %q: %w", title, err)
			default:
				apply(book, seedInput(sb))
				if err := tx.Books.Update(ctx, book); err != nil {
					return fmt.Errorf("update %q: %w", title, err)
				}
				touched = append(touched, bookCacheKey(book.ID))
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, append(touched, statsCacheKey)...)
	s.log.Info("books seeded", zap.Int("created", res.Created), zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	return res, nil
}

func seedInput(sb SeedBook) BookInput {
	in := BookInput(sb)
	if in.Language == "" {
		in.Language = DefaultUploadLanguage
	}
	return in
}

func (s *seedService) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repos.Users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if err == nil {
		if user.HasRole(model.RoleAdmin) && user.Verified {
			return user, nil
		}
		user.Roles = []string{model.RoleUser, model.RoleAdmin}
		user.Verified = true
		if err := s.repos.Users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		s.log.Info("user promoted to admin", zap.String("email", email))
		return user, nil
	}

	if password == "" {
		return nil, fmt.Errorf("create admin %s: password required", email)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user = &model.User{
		Email:        email,
		PasswordHash: hash,
		LastName:     "Admin",
		FirstName:    "Admin",
		Roles:        []string{model.RoleUser, model.RoleAdmin},
		Verified:     true,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin created", zap.String("email", email))
	invalidate(ctx, s.cache, statsCacheKey)
	return user, nil
}

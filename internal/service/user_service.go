package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"coinlecture/internal/auth"
	"coinlecture/internal/cache"
	apperrors "coinlecture/internal/errors"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
)

// UserInput is the admin payload for creating or editing an account.
// An empty Password on update keeps the current one.
type UserInput struct {
	Email     string
	Password  string
	LastName  string
	FirstName string
	Phone     *string
	Roles     []string
	Verified  *bool
}

// UserService exposes account administration.
type UserService interface {
	List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, in UserInput) (*model.User, error)
	Update(ctx context.Context, id uint, in UserInput) (*model.User, error)
	Delete(ctx context.Context, id uint) error
}

type userService struct {
	repo     repository.UserRepository
	loanRepo repository.LoanRepository
	cache    *cache.Client
}

// NewUserService builds a UserService with repositories and cache.
func NewUserService(repo repository.UserRepository, loanRepo repository.LoanRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, loanRepo: loanRepo, cache: cache}
}

func (s *userService) List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		LastName:     in.LastName,
		FirstName:    in.FirstName,
		Phone:        in.Phone,
		Roles:        normalizeRoles(in.Roles),
		Verified:     true,
	}
	if in.Verified != nil {
		user.Verified = *in.Verified
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyUsed
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	invalidate(ctx, s.cache, statsCacheKey)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uint, in UserInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" && email != user.Email {
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}
	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.Phone != nil {
		user.Phone = in.Phone
	}
	if in.Roles != nil {
		user.Roles = normalizeRoles(in.Roles)
	}
	if in.Verified != nil {
		user.Verified = *in.Verified
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyUsed
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}
	n, err := s.loanRepo.CountByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("count loans: %w", err)
	}
	if n > 0 {
		return apperrors.ErrUserHasLoans
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}

	invalidate(ctx, s.cache, statsCacheKey)
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uint) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil && existing != nil && existing.ID != self {
		return apperrors.ErrEmailAlreadyUsed
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check user existence: %w", err)
	}
	return nil
}

// normalizeRoles keeps known roles once each, ROLE_USER first.
func normalizeRoles(roles []string) []string {
	out := []string{model.RoleUser}
	for _, r := range roles {
		if r == model.RoleAdmin && len(out) == 1 {
			out = append(out, r)
		}
	}
	return out
}

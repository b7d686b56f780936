package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinlecture/internal/auth"
	apperrors "coinlecture/internal/errors"
	"coinlecture/internal/mail"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
)

// VerifyResult tells how a verification link was consumed.
type VerifyResult string

const (
	VerifyResultVerified        VerifyResult = "verified"
	VerifyResultAlreadyVerified VerifyResult = "already_verified"
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email     string
	Password  string
	LastName  string
	FirstName string
	Phone     *string
}

// RegistrationService covers sign-up and email confirmation.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) (VerifyResult, error)
	// ResendVerification mails a fresh link to an unverified user. It never
	// reveals whether the address is known.
	ResendVerification(ctx context.Context, email string) error
}

type registrationService struct {
	userRepo    repository.UserRepository
	mailer      mail.Mailer
	frontendURL string
	log         *zap.Logger
}

// NewRegistrationService builds a RegistrationService. Confirmation links
// point at frontendURL.
func NewRegistrationService(userRepo repository.UserRepository, mailer mail.Mailer, frontendURL string, log *zap.Logger) RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &registrationService{
		userRepo:    userRepo,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

const compensateTimeout = 5 * time.Second

func (s *registrationService) confirmLink(token string) string {
	return s.frontendURL + "/confirm-email?token=" + url.QueryEscape(token)
}

func (s *registrationService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailAlreadyUsed
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	token, err := auth.NewVerificationToken()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:             email,
		PasswordHash:      hash,
		LastName:          in.LastName,
		FirstName:         in.FirstName,
		Phone:             in.Phone,
		Roles:             []string{model.RoleUser},
		VerificationToken: &token,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyUsed
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	msg, err := mail.ConfirmationMessage(user.Email, user.FirstName, s.confirmLink(token))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.Error("confirmation mail failed, removing user",
			zap.String("email", user.Email), zap.Uint("user_id", user.ID), zap.Error(err))
		// The request may already be cancelled; the row must go regardless.
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
		defer cancel()
		if delErr := s.userRepo.Delete(delCtx, user.ID); delErr != nil {
			s.log.Error("compensating delete failed", zap.Uint("user_id", user.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("send confirmation mail: %w", err)
	}

	return user, nil
}

func (s *registrationService) VerifyEmail(ctx context.Context, token string) (VerifyResult, error) {
	if token == "" {
		return "", apperrors.ErrInvalidVerificationToken
	}
	user, err := s.userRepo.FindByVerificationToken(ctx, token)
	if err != nil {
		return "", notFound(err, apperrors.ErrInvalidVerificationToken)
	}

	// The redeemed token stays on the row so a second click is recognised.
	if user.Verified {
		return VerifyResultAlreadyVerified, nil
	}
	user.Verified = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}
	return VerifyResultVerified, nil
}

func (s *registrationService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.Verified {
		return nil
	}

	token, err := auth.NewVerificationToken()
	if err != nil {
		return err
	}
	user.VerificationToken = &token
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	msg, err := mail.ResendMessage(user.Email, user.FirstName, s.confirmLink(token))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn("resend confirmation mail failed", zap.String("email", user.Email), zap.Error(err))
	}
	return nil
}

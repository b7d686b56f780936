package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/model"
	"coinlecture/internal/service"
)

// AuthHandler handles authentication, registration and profile endpoints.
type AuthHandler struct {
	authService         service.AuthService
	registrationService service.RegistrationService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, registrationService service.RegistrationService) *AuthHandler {
	return &AuthHandler{authService: authService, registrationService: registrationService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email,max=180"`
	Password  string  `json:"password" validate:"required,min=6"`
	LastName  string  `json:"last_name" validate:"required,max=255"`
	FirstName string  `json:"first_name" validate:"required,max=255"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request. The refresh token is optional;
// the access token is always revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResendVerificationRequest asks for a new confirmation link.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user,omitempty"`
}

// RegisterResponse is returned after a successful sign-up.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// Register godoc
// @Summary Register a new reader
// @Description Creates an unverified account and mails a confirmation link.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.registrationService.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Phone:     req.Phone,
	})
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Message: "registration successful, check your email to confirm your account",
		User:    user,
	})
}

// VerifyEmail godoc
// @Summary Confirm an email address
// @Tags auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/verify/{token} [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	res, err := h.registrationService.VerifyEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(err)
	}
	msg := "email confirmed, you can now log in"
	if res == service.VerifyResultAlreadyVerified {
		msg = "email already confirmed"
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// ResendVerification godoc
// @Summary Send a new confirmation link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendVerificationRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req ResendVerificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.registrationService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "if an unconfirmed account exists for this address, a new link has been sent",
	})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         pair.User,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, AuthResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest false "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	_, claims, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, claims); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, _, err := actorFrom(c)
	if err != nil {
		return err
	}
	user, err := h.authService.Me(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

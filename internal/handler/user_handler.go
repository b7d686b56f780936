package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/repository"
	"coinlecture/internal/service"
)

// UserHandler bundles account administration endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUserRequest is the admin payload for a new account.
type CreateUserRequest struct {
	Email     string   `json:"email" validate:"required,email,max=180"`
	Password  string   `json:"password" validate:"required,min=6"`
	LastName  string   `json:"last_name" validate:"required,max=255"`
	FirstName string   `json:"first_name" validate:"required,max=255"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=20"`
	Roles     []string `json:"roles" validate:"omitempty,dive,oneof=ROLE_USER ROLE_ADMIN"`
	Verified  *bool    `json:"verified,omitempty"`
}

// UpdateUserRequest changes an account. Empty fields are left unchanged.
type UpdateUserRequest struct {
	Email     string   `json:"email" validate:"omitempty,email,max=180"`
	Password  string   `json:"password" validate:"omitempty,min=6"`
	LastName  string   `json:"last_name" validate:"max=255"`
	FirstName string   `json:"first_name" validate:"max=255"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=20"`
	Roles     []string `json:"roles" validate:"omitempty,dive,oneof=ROLE_USER ROLE_ADMIN"`
	Verified  *bool    `json:"verified,omitempty"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in email and names"
// @Param page query int false "Page (1-based)"
// @Param per_page query int false "Items per page (max 100)"
// @Success 200 {object} Collection[model.User]
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	filter := repository.UserFilter{Query: c.QueryParam("q"), Page: pageFrom(c)}
	users, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newCollection(users, total, filter.Page))
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Create(c.Request().Context(), service.UserInput(req))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser godoc
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param user body UpdateUserRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Update(c.Request().Context(), id, service.UserInput(req))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

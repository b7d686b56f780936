package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/service"
)

// LoanHandler serves loan requests, decisions and returns.
type LoanHandler struct {
	svc service.LoanService
}

// NewLoanHandler creates a loan handler.
func NewLoanHandler(svc service.LoanService) *LoanHandler {
	return &LoanHandler{svc: svc}
}

// CreateLoanRequest asks to borrow copies of a book. Dates are YYYY-MM-DD
// or RFC 3339. user_id is only honoured for admins.
type CreateLoanRequest struct {
	UserID    uint   `json:"user_id"`
	BookID    uint   `json:"book_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1"`
	StartDate string `json:"start_date" validate:"required"`
	DueDate   string `json:"due_date" validate:"required"`
}

// UpdateLoanRequest edits a pending loan.
type UpdateLoanRequest struct {
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1"`
	StartDate string `json:"start_date"`
	DueDate   string `json:"due_date"`
}

// DecisionRequest approves or rejects a pending loan.
type DecisionRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

func parseDate(field, v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, badRequest(field + " must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// CreateLoan godoc
// @Summary Request a loan
// @Description The borrower is the caller. The loan starts pending.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loan body CreateLoanRequest true "Loan request"
// @Success 201 {object} model.Loan
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	actor, _, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateLoanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.LoanInput{UserID: req.UserID, BookID: req.BookID, Quantity: 1}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}
	if in.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return err
	}
	if in.DueDate, err = parseDate("due_date", req.DueDate); err != nil {
		return err
	}

	loan, err := h.svc.Request(c.Request().Context(), actor, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// ListLoans godoc
// @Summary List loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param user_id query int false "Borrower"
// @Param book_id query int false "Book"
// @Param open query bool false "Only loans not yet returned"
// @Param page query int false "Page (1-based)"
// @Param per_page query int false "Items per page (max 100)"
// @Success 200 {object} Collection[model.Loan]
// @Failure 400 {object} errors.ErrorResponse
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c echo.Context) error {
	filter := repository.LoanFilter{Page: pageFrom(c)}
	if s := c.QueryParam("status"); s != "" {
		filter.Status = model.LoanStatus(s)
		if !filter.Status.Valid() {
			return badRequest("status must be pending, approved or rejected")
		}
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badRequest("invalid user_id")
		}
		filter.UserID = uint(id)
	}
	if v := c.QueryParam("book_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badRequest("invalid book_id")
		}
		filter.BookID = uint(id)
	}
	if v := c.QueryParam("open"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("invalid open")
		}
		filter.OpenOnly = open
	}

	loans, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newCollection(loans, total, filter.Page))
}

// MyLoans godoc
// @Summary Loans of the current user
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param per_page query int false "Items per page (max 100)"
// @Success 200 {object} Collection[model.Loan]
// @Router /me/loans [get]
func (h *LoanHandler) MyLoans(c echo.Context) error {
	actor, _, err := actorFrom(c)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	loans, total, err := h.svc.ListForUser(c.Request().Context(), actor.UserID, page)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newCollection(loans, total, page))
}

// GetLoan godoc
// @Summary Get a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.Loan
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c echo.Context) error {
	actor, _, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	loan, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// History godoc
// @Summary Audit trail of a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {array} model.LoanEvent
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id}/history [get]
func (h *LoanHandler) History(c echo.Context) error {
	actor, _, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	events, err := h.svc.History(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(err)
	}
	if events == nil {
		events = []model.LoanEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

// UpdateLoan godoc
// @Summary Edit a pending loan
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param loan body UpdateLoanRequest true "Fields to change"
// @Success 200 {object} model.Loan
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id} [put]
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateLoanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.LoanUpdate{Quantity: req.Quantity}
	if req.StartDate != "" {
		t, err := parseDate("start_date", req.StartDate)
		if err != nil {
			return err
		}
		in.StartDate = &t
	}
	if req.DueDate != "" {
		t, err := parseDate("due_date", req.DueDate)
		if err != nil {
			return err
		}
		in.DueDate = &t
	}

	loan, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// DeleteLoan godoc
// @Summary Delete a loan
// @Tags loans
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/{id} [delete]
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Decide godoc
// @Summary Approve or reject a pending loan
// @Description Approval takes the requested copies off the shelf.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param decision body DecisionRequest true "Decision"
// @Success 200 {object} model.Loan
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/decision [post]
func (h *LoanHandler) Decide(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req DecisionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	loan, err := h.svc.Decide(c.Request().Context(), id, *req.Approve)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// Return godoc
// @Summary Record the return of an approved loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.Loan
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	loan, err := h.svc.Return(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

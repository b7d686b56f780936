package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/auth"
	"coinlecture/internal/errors"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/service"
)

// Collection is the envelope every list endpoint answers with.
type Collection[T any] struct {
	Member       []T   `json:"member"`
	TotalItems   int64 `json:"totalItems"`
	Page         int   `json:"page"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

func newCollection[T any](items []T, total int64, page repository.Page) Collection[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	return Collection[T]{Member: items, TotalItems: total, Page: page.Page, ItemsPerPage: page.PerPage}
}

// respondError converts a service error into the JSON error body.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func errorBody(msg, code string) errors.ErrorResponse {
	return errors.ErrorResponse{Error: msg, Code: code}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errorBody(msg, "BAD_REQUEST"))
}

func validationError(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
}

// bindAndValidate decodes the body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationError(err)
	}
	return nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid id")
	}
	return uint(id), nil
}

func pageFrom(c echo.Context) repository.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return repository.Page{Page: page, PerPage: perPage}
}

// actorFrom reads the caller from the validated access token.
func actorFrom(c echo.Context) (service.Actor, *auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return service.Actor{}, nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{Error: "missing token", Code: "UNAUTHORIZED"})
	}
	return service.Actor{UserID: claims.UserID, Admin: claims.HasRole(model.RoleAdmin)}, claims, nil
}

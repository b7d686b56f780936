package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/service"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seedService service.SeedService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seedService service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

// SeedBooksRequest carries books inline or points at a JSON document to fetch.
type SeedBooksRequest struct {
	URL   string             `json:"url" validate:"required_without=Books"`
	Books []service.SeedBook `json:"books" validate:"required_without=URL"`
}

// SeedBooksResponse represents the seed response.
type SeedBooksResponse struct {
	Message string `json:"message"`
	service.SeedResult
}

// SeedBooks godoc
// @Summary Seed the catalog
// @Description Upserts books by title and author, from the body or from a remote JSON array.
// @Tags seed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SeedBooksRequest true "Books or URL"
// @Success 200 {object} SeedBooksResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /seed/books [post]
func (h *SeedHandler) SeedBooks(c echo.Context) error {
	var req SeedBooksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	books := req.Books
	if len(books) == 0 {
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			return badRequest("url must be http or https")
		}
		fetched, err := service.LoadSeedBooks(c.Request().Context(), req.URL)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, errorBody(err.Error(), "SEED_SOURCE_FAILED"))
		}
		books = fetched
	}

	res, err := h.seedService.SeedBooks(c.Request().Context(), books)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, SeedBooksResponse{
		Message:    "books seeded successfully",
		SeedResult: *res,
	})
}

package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"coinlecture/internal/repository"
	"coinlecture/internal/service"
)

// BookHandler serves the catalog.
type BookHandler struct {
	svc service.BookService
}

// NewBookHandler creates a book handler.
func NewBookHandler(svc service.BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

// BookRequest is the create and update payload. Image may be a public path
// or a data:image/<ext>;base64 URI.
type BookRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	Author          string `json:"author" validate:"required,max=255"`
	Description     string `json:"description"`
	Genre           string `json:"genre" validate:"max=100"`
	PublicationYear int    `json:"publication_year" validate:"gte=0,lte=9999"`
	PageCount       int    `json:"page_count" validate:"gte=0"`
	Language        string `json:"language" validate:"max=50"`
	Image           string `json:"image"`
	Copies          int    `json:"copies" validate:"gte=0"`
}

func (r BookRequest) input() service.BookInput {
	return service.BookInput{
		Title:           r.Title,
		Author:          r.Author,
		Description:     r.Description,
		Genre:           r.Genre,
		PublicationYear: r.PublicationYear,
		PageCount:       r.PageCount,
		Language:        r.Language,
		Image:           r.Image,
		Copies:          r.Copies,
	}
}

// ListBooks godoc
// @Summary List books
// @Tags books
// @Produce json
// @Param q query string false "Search in title, author, description, genre and year"
// @Param genre query string false "Exact genre"
// @Param availability query string false "available or unavailable"
// @Param page query int false "Page (1-based)"
// @Param per_page query int false "Items per page (max 100)"
// @Success 200 {object} Collection[model.Book]
// @Failure 400 {object} errors.ErrorResponse
// @Router /books [get]
func (h *BookHandler) ListBooks(c echo.Context) error {
	filter := repository.BookFilter{
		Query: c.QueryParam("q"),
		Genre: c.QueryParam("genre"),
		Page:  pageFrom(c),
	}
	switch c.QueryParam("availability") {
	case "":
	case "available":
		v := true
		filter.Available = &v
	case "unavailable":
		v := false
		filter.Available = &v
	default:
		return badRequest("availability must be available or unavailable")
	}

	books, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newCollection(books, total, filter.Page))
}

// Genres godoc
// @Summary List distinct genres
// @Tags books
// @Produce json
// @Success 200 {array} string
// @Router /books/genres [get]
func (h *BookHandler) Genres(c echo.Context) error {
	genres, err := h.svc.Genres(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if genres == nil {
		genres = []string{}
	}
	return c.JSON(http.StatusOK, genres)
}

// GetBook godoc
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	book, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// CreateBook godoc
// @Summary Create a book
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param book body BookRequest true "Book"
// @Success 201 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /books [post]
func (h *BookHandler) CreateBook(c echo.Context) error {
	var req BookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	book, err := h.svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// UpdateBook godoc
// @Summary Replace a book
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param book body BookRequest true "Book"
// @Success 200 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [put]
func (h *BookHandler) UpdateBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	book, err := h.svc.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// DeleteBook godoc
// @Summary Delete a book
// @Tags books
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /books/{id} [delete]
func (h *BookHandler) DeleteBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadBook godoc
// @Summary Create a book from a form with a cover file
// @Tags books
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string false "Title"
// @Param author formData string false "Author"
// @Param description formData string false "Description"
// @Param genre formData string false "Genre"
// @Param publication_year formData int false "Publication year"
// @Param page_count formData int false "Page count"
// @Param language formData string false "Language"
// @Param copies formData int false "Copies"
// @Param image_file formData file false "Cover image"
// @Success 201 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Router /books/upload [post]
func (h *BookHandler) UploadBook(c echo.Context) error {
	in := service.BookInput{
		Title:       c.FormValue("title"),
		Author:      c.FormValue("author"),
		Description: c.FormValue("description"),
		Genre:       c.FormValue("genre"),
		Language:    c.FormValue("language"),
	}
	var err error
	if in.PublicationYear, err = formInt(c, "publication_year"); err != nil {
		return err
	}
	if in.PageCount, err = formInt(c, "page_count"); err != nil {
		return err
	}
	if in.Copies, err = formInt(c, "copies"); err != nil {
		return err
	}

	var file io.Reader
	if fh, err := c.FormFile("image_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return badRequest("cannot read image_file")
		}
		defer f.Close()
		file = f
	}

	book, err := h.svc.Upload(c.Request().Context(), in, file)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func formInt(c echo.Context, name string) (int, error) {
	v := c.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

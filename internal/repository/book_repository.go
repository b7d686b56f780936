package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinlecture/internal/model"
)

// BookFilter narrows a book listing.
type BookFilter struct {
	Query     string
	Genre     string
	Available *bool
	Page      Page
}

// BookRepository defines book persistence operations.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Book, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error)
	FindByTitleAndAuthor(ctx context.Context, title, author string) (*model.Book, error)
	List(ctx context.Context, filter BookFilter) ([]model.Book, int64, error)
	Genres(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	UpdateImage(ctx context.Context, id uint, image string) error
	// DecrementCopies removes quantity copies only if that many are on the
	// shelf. It reports false when the guard did not match.
	DecrementCopies(ctx context.Context, id uint, quantity int) (bool, error)
	IncrementCopies(ctx context.Context, id uint, quantity int) error
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// Update updates an existing book.
func (r *bookRepository) Update(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// Delete removes a book.
func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a book by ID.
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDForUpdate finds a book by ID with a row-level lock.
func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByTitleAndAuthor finds a book by its exact title and author.
func (r *bookRepository) FindByTitleAndAuthor(ctx context.Context, title, author string) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Where("title = ? AND author = ?", title, author).
		First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns a page of books, newest first, and the total match count.
func (r *bookRepository) List(ctx context.Context, filter BookFilter) ([]model.Book, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Book{})
	if filter.Query != "" {
		p := likePattern(filter.Query)
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'"+
			" OR LOWER(genre) LIKE ? ESCAPE '!' OR CAST(publication_year AS CHAR) LIKE ? ESCAPE '!')",
			p, p, p, p, p)
	}
	if filter.Genre != "" {
		q = q.Where("genre = ?", filter.Genre)
	}
	if filter.Available != nil {
		if *filter.Available {
			q = q.Where("copies > 0")
		} else {
			q = q.Where("copies = 0")
		}
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []model.Book
	if err := filter.Page.apply(q.Order("id DESC")).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// Genres lists distinct genres in alphabetical order.
func (r *bookRepository) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	if err := r.db.WithContext(ctx).Model(&model.Book{}).
		Distinct("genre").Order("genre").Pluck("genre", &genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

// Count returns the number of books.
func (r *bookRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Book{}).Count(&n).Error
	return n, err
}

// UpdateImage stores a new cover path.
func (r *bookRepository) UpdateImage(ctx context.Context, id uint, image string) error {
	return r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ?", id).
		Update("image", image).Error
}

// DecrementCopies removes copies with a guarded conditional update.
func (r *bookRepository) DecrementCopies(ctx context.Context, id uint, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ? AND copies >= ?", id, quantity).
		Update("copies", gorm.Expr("copies - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementCopies puts copies back on the shelf.
func (r *bookRepository) IncrementCopies(ctx context.Context, id uint, quantity int) error {
	return r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ?", id).
		Update("copies", gorm.Expr("copies + ?", quantity)).Error
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultBookImage is the cover used until an image is uploaded.
const DefaultBookImage = "/images/books/default.jpg"

// Book is a catalog title and its stock of copies on the shelf.
type Book struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"size:255;not null;index"`
	Author          string    `json:"author" gorm:"size:255;not null;index"`
	Description     string    `json:"description" gorm:"type:text;not null"`
	Genre           string    `json:"genre" gorm:"size:100;not null;index"`
	PublicationYear int       `json:"publication_year" gorm:"not null"`
	PageCount       int       `json:"page_count" gorm:"not null"`
	Language        string    `json:"language" gorm:"size:50;not null"`
	Image           string    `json:"image" gorm:"size:255;not null"`
	Copies          int       `json:"copies" gorm:"not null;default:0;check:chk_books_copies,copies >= 0"`
	Available       bool      `json:"available" gorm:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAvailable reports whether at least one copy is on the shelf.
func (b *Book) IsAvailable() bool {
	return b.Copies > 0
}

// AfterFind derives Available from the copy count.
func (b *Book) AfterFind(tx *gorm.DB) error {
	b.Available = b.IsAvailable()
	return nil
}

// AfterSave keeps Available in sync after writes.
func (b *Book) AfterSave(tx *gorm.DB) error {
	b.Available = b.IsAvailable()
	return nil
}

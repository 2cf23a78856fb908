// Package books provides database operations for books and their author and
// category association rows.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(ctx, 123)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
)

// Schema is the set of book fields callers may filter and sort on.
var Schema = listing.Schema{
	"id":            {Name: "id", Kind: listing.KindInt},
	"title":         {Name: "title", Kind: listing.KindText},
	"isbn":          {Name: "isbn", Kind: listing.KindText},
	"description":   {Name: "description", Kind: listing.KindText},
	"publishedDate": {Name: "published_date", Kind: listing.KindTime},
	"pageCount":     {Name: "page_count", Kind: listing.KindInt},
	"thumbnail":     {Name: "thumbnail", Kind: listing.KindText},
	"language":      {Name: "language", Kind: listing.KindText},
	"googleBooksId": {Name: "google_books_id", Kind: listing.KindText},
	"createdAt":     {Name: "created_at", Kind: listing.KindTime},
	"updatedAt":     {Name: "updated_at", Kind: listing.KindTime},
}

// Repository handles book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("BookAuthors", func(db *gorm.DB) *gorm.DB { return db.Order("author_id ASC") }).
		Preload("BookAuthors.Author").
		Preload("BookCategories", func(db *gorm.DB) *gorm.DB { return db.Order("category_id ASC") }).
		Preload("BookCategories.Category")
}

// Create inserts the book row only; association rows are added separately.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error
}

// Save writes every column of an existing book.
func (r *Repository) Save(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(book).Error
}

// GetBookByID retrieves a book with its authors and categories.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := withAssociations(r.db.WithContext(ctx)).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByGoogleBooksID returns gorm.ErrRecordNotFound when no book was imported
// from that volume.
func (r *Repository) FindByGoogleBooksID(ctx context.Context, volumeID string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("google_books_id = ?", volumeID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns the books matching q together with the number of matches
// before paging.
func (r *Repository) List(ctx context.Context, q listing.Query) ([]entities.Book, int64, error) {
	filtered, err := Schema.Filter(r.db.WithContext(ctx).Model(&entities.Book{}), q.Filters)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	scoped, err := Schema.Apply(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, 0, err
	}

	var books []entities.Book
	if err := withAssociations(scoped).Find(&books).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}

// Delete removes the book and its association rows. It reports false when
// no book has that id.
func (r *Repository) Delete(ctx context.Context, id uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookAuthor{}).Error; err != nil {
			return fmt.Errorf("failed to delete book authors: %w", err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookCategory{}).Error; err != nil {
			return fmt.Errorf("failed to delete book categories: %w", err)
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete book: %w", result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// AddAuthors links the book to each author. Existing links are left alone.
func (r *Repository) AddAuthors(ctx context.Context, bookID uint, authorIDs []uint) error {
	if len(authorIDs) == 0 {
		return nil
	}
	rows := make([]entities.BookAuthor, 0, len(authorIDs))
	for _, id := range authorIDs {
		rows = append(rows, entities.BookAuthor{BookID: bookID, AuthorID: id})
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// AddCategories links the book to each category.
func (r *Repository) AddCategories(ctx context.Context, bookID uint, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]entities.BookCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, entities.BookCategory{BookID: bookID, CategoryID: id})
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// Recent returns the most recently created books, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := withAssociations(r.db.WithContext(ctx)).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&books).Error
	return books, err
}

// IsNotFound reports whether err means the requested book does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package entities

import (
	"time"

	"gorm.io/gorm"
)

// Book is a catalog entry. Optional columns are pointers so that "unset"
// is stored as NULL rather than a zero value.
type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"not null;size:512;index" json:"title"`
	ISBN          *string    `gorm:"size:20;index" json:"isbn"`
	Description   *string    `gorm:"type:text" json:"description"`
	PublishedDate *time.Time `json:"publishedDate"`
	PageCount     *int       `json:"pageCount"`
	Thumbnail     *string    `gorm:"size:2048" json:"thumbnail"`
	Language      *string    `gorm:"size:16" json:"language"`
	GoogleBooksID *string    `gorm:"column:google_books_id;uniqueIndex;size:64" json:"googleBooksId"`
	CreatedAt     time.Time  `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt"`

	BookAuthors    []BookAuthor   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"bookAuthors"`
	BookCategories []BookCategory `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"bookCategories"`
}

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:256;index" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`

	BookAuthors []BookAuthor `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"bookAuthors,omitempty"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:256;index" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`

	BookCategories []BookCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"bookCategories,omitempty"`
}

// BookAuthor links a book to one of its authors. The pair is the primary key.
type BookAuthor struct {
	BookID   uint    `gorm:"primaryKey;autoIncrement:false" json:"bookId"`
	AuthorID uint    `gorm:"primaryKey;autoIncrement:false;index" json:"authorId"`
	Author   *Author `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// BookCategory links a book to one of its categories.
type BookCategory struct {
	BookID     uint      `gorm:"primaryKey;autoIncrement:false" json:"bookId"`
	CategoryID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"categoryId"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

func (Author) TableName() string {
	return "authors"
}

func (Category) TableName() string {
	return "categories"
}

func (BookAuthor) TableName() string {
	return "book_authors"
}

func (BookCategory) TableName() string {
	return "book_categories"
}

// Authors returns the resolved authors of the book, in association order.
// Associations loaded without their Author are skipped.
func (b *Book) Authors() []Author {
	authors := make([]Author, 0, len(b.BookAuthors))
	for _, ba := range b.BookAuthors {
		if ba.Author != nil {
			authors = append(authors, *ba.Author)
		}
	}
	return authors
}

// Categories returns the resolved categories of the book.
func (b *Book) Categories() []Category {
	categories := make([]Category, 0, len(b.BookCategories))
	for _, bc := range b.BookCategories {
		if bc.Category != nil {
			categories = append(categories, *bc.Category)
		}
	}
	return categories
}

// All timestamps are stored and returned in UTC regardless of the driver's
// session time zone.

func (b *Book) BeforeSave(tx *gorm.DB) error {
	b.normalizeTimes()
	return nil
}

func (b *Book) AfterFind(tx *gorm.DB) error {
	b.normalizeTimes()
	return nil
}

func (b *Book) normalizeTimes() {
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	if b.PublishedDate != nil {
		published := b.PublishedDate.UTC()
		b.PublishedDate = &published
	}
}

func (a *Author) BeforeSave(tx *gorm.DB) error {
	a.CreatedAt = a.CreatedAt.UTC()
	return nil
}

func (a *Author) AfterFind(tx *gorm.DB) error {
	a.CreatedAt = a.CreatedAt.UTC()
	return nil
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.CreatedAt = c.CreatedAt.UTC()
	return nil
}

func (c *Category) AfterFind(tx *gorm.DB) error {
	c.CreatedAt = c.CreatedAt.UTC()
	return nil
}

package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/covers"
	"github.com/mrlokans/bookstack/internal/entities"
)

// BooksController serves the book routes.
type BooksController struct {
	store      BookStore
	importer   BookImporter
	thumbnails ThumbnailCache
}

// NewBooksController creates the controller. importer and thumbnails may be
// nil.
func NewBooksController(store BookStore, importer BookImporter, thumbnails ThumbnailCache) *BooksController {
	return &BooksController{store: store, importer: importer, thumbnails: thumbnails}
}

// BookListResponse is one page of books with the total number of matches.
type BookListResponse struct {
	Books []entities.Book `json:"books"`
	Count int64           `json:"count"`
}

// ListBooks handles GET /api/books
func (bc *BooksController) ListBooks(c *gin.Context) {
	q, ok := parseListing(c)
	if !ok {
		return
	}

	books, count, err := bc.store.ListBooks(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err, "list books")
		return
	}
	if books == nil {
		books = []entities.Book{}
	}

	c.JSON(http.StatusOK, BookListResponse{Books: books, Count: count})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	if book == nil {
		respondNotFound(c, "book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// AddBook handles POST /api/books
func (bc *BooksController) AddBook(c *gin.Context) {
	var in catalog.AddBookInput
	if !bindJSON(c, &in) {
		return
	}

	book, err := bc.store.AddBook(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err, "add book")
		return
	}

	c.JSON(http.StatusCreated, book)
}

// UpdateBook handles PATCH /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in catalog.UpdateBookInput
	if !bindJSON(c, &in) {
		return
	}

	book, err := bc.store.UpdateBook(c.Request.Context(), id, in)
	if err != nil {
		respondServiceError(c, err, "update book")
		return
	}
	if in.Thumbnail.Set {
		bc.invalidateThumbnail(id)
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id. An unknown id reports
// deleted=false with 200.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deleted, err := bc.store.DeleteBook(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "delete book")
		return
	}
	if deleted {
		bc.invalidateThumbnail(id)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ImportBook handles POST /api/books/import
func (bc *BooksController) ImportBook(c *gin.Context) {
	var in catalog.ImportInput
	if !bindJSON(c, &in) {
		return
	}

	book, err := bc.importer.ImportBook(c.Request.Context(), in.ExternalID)
	if err != nil {
		respondServiceError(c, err, "import book")
		return
	}

	c.JSON(http.StatusCreated, book)
}

// GetStats handles GET /api/stats
func (bc *BooksController) GetStats(c *gin.Context) {
	stats, err := bc.store.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	if stats.RecentBooks == nil {
		stats.RecentBooks = []entities.Book{}
	}

	c.JSON(http.StatusOK, stats)
}

// GetThumbnail handles GET /api/books/:id/thumbnail
// Serves the locally cached copy of the book's thumbnail.
func (bc *BooksController) GetThumbnail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	if book == nil {
		respondNotFound(c, "book")
		return
	}
	if book.Thumbnail == nil {
		respondNotFound(c, "thumbnail")
		return
	}

	path, err := bc.thumbnails.Get(c.Request.Context(), id, *book.Thumbnail)
	if err != nil {
		if errors.Is(err, covers.ErrNoThumbnail) {
			respondNotFound(c, "thumbnail")
			return
		}
		log.Printf("Failed to fetch thumbnail for book %d: %v", id, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "thumbnail unavailable", Code: CodeProviderUnavailable})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}

func (bc *BooksController) invalidateThumbnail(id uint) {
	if bc.thumbnails == nil {
		return
	}
	if err := bc.thumbnails.Invalidate(id); err != nil {
		log.Printf("Failed to invalidate thumbnail for book %d: %v", id, err)
	}
}

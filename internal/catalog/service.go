// Package catalog implements the book catalog operations: mutations and
// queries over books, authors and categories, and the import of books from
// Google Books.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookstack/internal/database/authors"
	"github.com/mrlokans/bookstack/internal/database/books"
	"github.com/mrlokans/bookstack/internal/database/categories"
	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
	"github.com/mrlokans/bookstack/internal/googlebooks"
)

// RecentBooksLimit is the number of books reported by Stats.
const RecentBooksLimit = 5

// Provider is the external volume source used by imports and provider
// searches.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) (*googlebooks.Volumes, error)
	GetByID(ctx context.Context, id string) (*googlebooks.Volume, error)
	SearchByISBN(ctx context.Context, isbn string) (*googlebooks.Volumes, error)
}

// Auditor receives one event per mutation. Implementations must not block.
type Auditor interface {
	Record(event *entities.AuditEvent)
}

type Service struct {
	db       *gorm.DB
	provider Provider
	auditor  Auditor
	now      func() time.Time
}

// NewService creates the catalog service. auditor may be nil.
func NewService(db *gorm.DB, provider Provider, auditor Auditor) *Service {
	return &Service{
		db:       db,
		provider: provider,
		auditor:  auditor,
		now:      time.Now,
	}
}

// Stats is the dashboard summary.
type Stats struct {
	TotalBooks      int64           `json:"totalBooks"`
	TotalAuthors    int64           `json:"totalAuthors"`
	TotalCategories int64           `json:"totalCategories"`
	RecentBooks     []entities.Book `json:"recentBooks"`
}

// clock returns the current instant in UTC at microsecond precision, the
// finest resolution every supported database keeps.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// AddBook validates and stores a new book with its author and category
// links. Every referenced author and category must exist; otherwise nothing
// is written.
func (s *Service) AddBook(ctx context.Context, in AddBookInput) (*entities.Book, error) {
	book, err := s.addBook(ctx, in)

	var id *uint
	if book != nil {
		id = &book.ID
	}
	s.record(entities.AuditEventCreate, "book_add", "book", id, fmt.Sprintf("Added book %q", in.Title), err)

	return book, err
}

func (s *Service) addBook(ctx context.Context, in AddBookInput) (*entities.Book, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.clock()
	book := &entities.Book{
		Title:         in.Title,
		ISBN:          in.ISBN,
		Description:   in.Description,
		PageCount:     in.PageCount,
		Thumbnail:     in.Thumbnail,
		Language:      in.Language,
		GoogleBooksID: in.externalID(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PublishedDate != nil {
		published := in.PublishedDate.UTC()
		book.PublishedDate = &published
	}

	authorIDs := uniqueIDs(in.AuthorIDs)
	categoryIDs := uniqueIDs(in.CategoryIDs)

	var saved *entities.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireExisting(ctx, tx, authorIDs, categoryIDs); err != nil {
			return err
		}

		repo := books.NewRepository(tx)
		if err := repo.Create(ctx, book); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: a book with googleBooksId %q already exists", ErrConflict, *book.GoogleBooksID)
			}
			return fmt.Errorf("failed to save book: %w", err)
		}
		if err := repo.AddAuthors(ctx, book.ID, authorIDs); err != nil {
			return fmt.Errorf("failed to link authors: %w", err)
		}
		if err := repo.AddCategories(ctx, book.ID, categoryIDs); err != nil {
			return fmt.Errorf("failed to link categories: %w", err)
		}

		var err error
		saved, err = repo.GetBookByID(ctx, book.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func requireExisting(ctx context.Context, tx *gorm.DB, authorIDs, categoryIDs []uint) error {
	fields := map[string]string{}

	foundAuthors, err := authors.NewRepository(tx).ExistingIDs(ctx, authorIDs)
	if err != nil {
		return fmt.Errorf("failed to check authors: %w", err)
	}
	if missing := difference(authorIDs, foundAuthors); len(missing) > 0 {
		fields["authorIds"] = "unknown ids " + joinIDs(missing)
	}

	foundCategories, err := categories.NewRepository(tx).ExistingIDs(ctx, categoryIDs)
	if err != nil {
		return fmt.Errorf("failed to check categories: %w", err)
	}
	if missing := difference(categoryIDs, foundCategories); len(missing) > 0 {
		fields["categoryIds"] = "unknown ids " + joinIDs(missing)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// UpdateBook applies a partial patch. updatedAt always moves forward, even
// when the clock has not advanced since the previous write.
func (s *Service) UpdateBook(ctx context.Context, id uint, in UpdateBookInput) (*entities.Book, error) {
	book, err := s.updateBook(ctx, id, in)
	s.record(entities.AuditEventUpdate, "book_update", "book", &id, fmt.Sprintf("Updated book %d", id), err)
	return book, err
}

func (s *Service) updateBook(ctx context.Context, id uint, in UpdateBookInput) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var saved *entities.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := books.NewRepository(tx)

		book, err := repo.GetBookByID(ctx, id)
		if err != nil {
			if books.IsNotFound(err) {
				return fmt.Errorf("%w: book %d", ErrNotFound, id)
			}
			return fmt.Errorf("failed to load book %d: %w", id, err)
		}

		if in.Title.Set {
			book.Title = in.Title.Value
		}
		in.ISBN.apply(&book.ISBN)
		in.Description.apply(&book.Description)
		in.PageCount.apply(&book.PageCount)
		in.Thumbnail.apply(&book.Thumbnail)
		in.Language.apply(&book.Language)
		switch {
		case !in.PublishedDate.Set:
		case in.PublishedDate.Null:
			book.PublishedDate = nil
		default:
			published := in.PublishedDate.Value.UTC()
			book.PublishedDate = &published
		}

		now := s.clock()
		if !now.After(book.UpdatedAt) {
			now = book.UpdatedAt.Add(time.Microsecond)
		}
		book.UpdatedAt = now

		if err := repo.Save(ctx, book); err != nil {
			return fmt.Errorf("failed to save book %d: %w", id, err)
		}

		saved, err = repo.GetBookByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteBook removes the book and its links. An unknown id is not an error:
// it reports false and changes nothing.
func (s *Service) DeleteBook(ctx context.Context, id uint) (bool, error) {
	deleted, err := books.NewRepository(s.db).Delete(ctx, id)
	if err != nil {
		err = fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	if deleted || err != nil {
		s.record(entities.AuditEventDelete, "book_delete", "book", &id, fmt.Sprintf("Deleted book %d", id), err)
	}
	return deleted, err
}

// AddAuthor stores a new author. Names are trimmed but not deduplicated.
func (s *Service) AddAuthor(ctx context.Context, name string) (*entities.Author, error) {
	in := NameInput{Name: strings.TrimSpace(name)}
	if err := validateStruct(in); err != nil {
		s.record(entities.AuditEventCreate, "author_add", "author", nil, "Add author rejected", err)
		return nil, err
	}

	author := &entities.Author{Name: in.Name, CreatedAt: s.clock()}
	err := authors.NewRepository(s.db).Create(ctx, author)
	if err != nil {
		err = fmt.Errorf("failed to save author: %w", err)
	}
	s.record(entities.AuditEventCreate, "author_add", "author", &author.ID, fmt.Sprintf("Added author %q", in.Name), err)
	if err != nil {
		return nil, err
	}
	return author, nil
}

func (s *Service) AddCategory(ctx context.Context, name string) (*entities.Category, error) {
	in := NameInput{Name: strings.TrimSpace(name)}
	if err := validateStruct(in); err != nil {
		s.record(entities.AuditEventCreate, "category_add", "category", nil, "Add category rejected", err)
		return nil, err
	}

	category := &entities.Category{Name: in.Name, CreatedAt: s.clock()}
	err := categories.NewRepository(s.db).Create(ctx, category)
	if err != nil {
		err = fmt.Errorf("failed to save category: %w", err)
	}
	s.record(entities.AuditEventCreate, "category_add", "category", &category.ID, fmt.Sprintf("Added category %q", in.Name), err)
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetBookByID returns nil without an error when the book does not exist.
func (s *Service) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := books.NewRepository(s.db).GetBookByID(ctx, id)
	if err != nil {
		if books.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load book %d: %w", id, err)
	}
	return book, nil
}

// ListBooks returns the page of books matching q and the total number of
// matches.
func (s *Service) ListBooks(ctx context.Context, q listing.Query) ([]entities.Book, int64, error) {
	result, total, err := books.NewRepository(s.db).List(ctx, q)
	if err != nil {
		return nil, 0, listingError(err)
	}
	return result, total, nil
}

func (s *Service) ListAuthors(ctx context.Context, q listing.Query) ([]entities.Author, error) {
	result, err := authors.NewRepository(s.db).List(ctx, q)
	if err != nil {
		return nil, listingError(err)
	}
	return result, nil
}

func (s *Service) ListCategories(ctx context.Context, q listing.Query) ([]entities.Category, error) {
	result, err := categories.NewRepository(s.db).List(ctx, q)
	if err != nil {
		return nil, listingError(err)
	}
	return result, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	booksRepo := books.NewRepository(s.db)

	var stats Stats
	var err error
	if stats.TotalBooks, err = booksRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if stats.TotalAuthors, err = authors.NewRepository(s.db).Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count authors: %w", err)
	}
	if stats.TotalCategories, err = categories.NewRepository(s.db).Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if stats.RecentBooks, err = booksRepo.Recent(ctx, RecentBooksLimit); err != nil {
		return nil, fmt.Errorf("failed to load recent books: %w", err)
	}
	return &stats, nil
}

func listingError(err error) error {
	if errors.Is(err, listing.ErrInvalid) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func difference(want, found []uint) []uint {
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookstack/internal/database/authors"
	"github.com/mrlokans/bookstack/internal/database/books"
	"github.com/mrlokans/bookstack/internal/database/categories"
	"github.com/mrlokans/bookstack/internal/entities"
	"github.com/mrlokans/bookstack/internal/googlebooks"
)

// ImportBook copies a Google Books volume into the catalog, creating any
// author or category that does not yet exist by exact name. The import is
// all-or-nothing.
//
// Name lookups are not serialized across concurrent imports, so two imports
// racing on a new author name can each create a row for it.
func (s *Service) ImportBook(ctx context.Context, externalID string) (*entities.Book, error) {
	externalID = strings.TrimSpace(externalID)
	book, err := s.importBook(ctx, externalID)

	var id *uint
	description := fmt.Sprintf("Import of volume %q", externalID)
	if book != nil {
		id = &book.ID
		description = fmt.Sprintf("Imported %q from Google Books volume %s", book.Title, externalID)
	}
	s.record(entities.AuditEventImport, "book_import", "book", id, description, err)

	return book, err
}

func (s *Service) importBook(ctx context.Context, externalID string) (*entities.Book, error) {
	if err := (ImportInput{ExternalID: externalID}).Validate(); err != nil {
		return nil, err
	}

	volume, err := s.provider.GetByID(ctx, externalID)
	if err != nil {
		return nil, providerError(err)
	}

	now := s.clock()
	book := bookFromVolume(volume, externalID, now)
	info := volume.VolumeInfo

	var saved *entities.Book
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booksRepo := books.NewRepository(tx)

		if _, err := booksRepo.FindByGoogleBooksID(ctx, externalID); err == nil {
			return fmt.Errorf("%w: volume %s is already imported", ErrConflict, externalID)
		} else if !books.IsNotFound(err) {
			return fmt.Errorf("failed to check for existing import: %w", err)
		}

		if err := booksRepo.Create(ctx, book); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: volume %s is already imported", ErrConflict, externalID)
			}
			return fmt.Errorf("failed to save book: %w", err)
		}

		authorsRepo := authors.NewRepository(tx)
		authorIDs := make([]uint, 0, len(info.Authors))
		for _, name := range uniqueNames(info.Authors) {
			author, created, err := authorsRepo.GetOrCreate(ctx, name, now)
			if err != nil {
				return err
			}
			if created {
				log.Printf("[IMPORT] Created author %q", name)
			}
			authorIDs = append(authorIDs, author.ID)
		}
		if err := booksRepo.AddAuthors(ctx, book.ID, authorIDs); err != nil {
			return fmt.Errorf("failed to link authors: %w", err)
		}

		categoriesRepo := categories.NewRepository(tx)
		categoryIDs := make([]uint, 0, len(info.Categories))
		for _, name := range uniqueNames(info.Categories) {
			category, created, err := categoriesRepo.GetOrCreate(ctx, name, now)
			if err != nil {
				return err
			}
			if created {
				log.Printf("[IMPORT] Created category %q", name)
			}
			categoryIDs = append(categoryIDs, category.ID)
		}
		if err := booksRepo.AddCategories(ctx, book.ID, categoryIDs); err != nil {
			return fmt.Errorf("failed to link categories: %w", err)
		}

		var err error
		saved, err = booksRepo.GetBookByID(ctx, book.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[IMPORT] Imported %q (volume %s) as book %d", saved.Title, externalID, saved.ID)
	return saved, nil
}

func bookFromVolume(volume *googlebooks.Volume, externalID string, now time.Time) *entities.Book {
	info := volume.VolumeInfo

	providerID := volume.ID
	if providerID == "" {
		providerID = externalID
	}

	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = providerID
	}

	return &entities.Book{
		Title:         title,
		ISBN:          nonEmpty(info.ISBN()),
		Description:   nonEmpty(info.Description),
		PublishedDate: info.Published(),
		PageCount:     info.PageCount,
		Thumbnail:     nonEmpty(info.ImageLinks.Thumbnail),
		Language:      nonEmpty(info.Language),
		GoogleBooksID: &providerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SearchProvider runs a free-text search against Google Books.
func (s *Service) SearchProvider(ctx context.Context, query string, maxResults int) (*googlebooks.Volumes, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newValidationError("q", "is required")
	}
	volumes, err := s.provider.Search(ctx, query, maxResults)
	if err != nil {
		return nil, providerError(err)
	}
	return volumes, nil
}

func (s *Service) GetProviderVolume(ctx context.Context, id string) (*googlebooks.Volume, error) {
	if strings.TrimSpace(id) == "" {
		return nil, newValidationError("id", "is required")
	}
	volume, err := s.provider.GetByID(ctx, id)
	if err != nil {
		return nil, providerError(err)
	}
	return volume, nil
}

func (s *Service) SearchProviderByISBN(ctx context.Context, isbn string) (*googlebooks.Volumes, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, newValidationError("isbn", "is required")
	}
	volumes, err := s.provider.SearchByISBN(ctx, isbn)
	if err != nil {
		return nil, providerError(err)
	}
	return volumes, nil
}

// providerError maps client failures onto catalog error kinds. Cancellation
// is passed through untouched.
func providerError(err error) error {
	switch {
	case errors.Is(err, googlebooks.ErrVolumeNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
	"github.com/mrlokans/bookstack/internal/googlebooks"
)

// Each controller depends on the narrow interface it needs. The catalog
// service satisfies all of the catalog ones.

// BookStore provides book queries and mutations.
type BookStore interface {
	AddBook(ctx context.Context, in catalog.AddBookInput) (*entities.Book, error)
	UpdateBook(ctx context.Context, id uint, in catalog.UpdateBookInput) (*entities.Book, error)
	DeleteBook(ctx context.Context, id uint) (bool, error)
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	ListBooks(ctx context.Context, q listing.Query) ([]entities.Book, int64, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
}

// BookImporter copies a provider volume into the catalog.
type BookImporter interface {
	ImportBook(ctx context.Context, externalID string) (*entities.Book, error)
}

type AuthorStore interface {
	AddAuthor(ctx context.Context, name string) (*entities.Author, error)
	ListAuthors(ctx context.Context, q listing.Query) ([]entities.Author, error)
}

type CategoryStore interface {
	AddCategory(ctx context.Context, name string) (*entities.Category, error)
	ListCategories(ctx context.Context, q listing.Query) ([]entities.Category, error)
}

// ProviderSearcher proxies read-only lookups to Google Books.
type ProviderSearcher interface {
	SearchProvider(ctx context.Context, query string, maxResults int) (*googlebooks.Volumes, error)
	GetProviderVolume(ctx context.Context, id string) (*googlebooks.Volume, error)
	SearchProviderByISBN(ctx context.Context, isbn string) (*googlebooks.Volumes, error)
}

// AuditReader pages through the audit trail, newest first.
type AuditReader interface {
	GetEvents(ctx context.Context, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsForEntity(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEvent(ctx context.Context, id uint) (*entities.AuditEvent, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ThumbnailCache serves local copies of book thumbnails.
type ThumbnailCache interface {
	Get(ctx context.Context, bookID uint, thumbnailURL string) (string, error)
	Invalidate(bookID uint) error
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookstack/internal/audit"
	"github.com/mrlokans/bookstack/internal/database"
	auditrepo "github.com/mrlokans/bookstack/internal/database/audit"
	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
	"github.com/mrlokans/bookstack/internal/googlebooks"
)

type fakeProvider struct {
	mu      sync.Mutex
	volumes map[string]*googlebooks.Volume
	err     error
	calls   int
}

func (p *fakeProvider) GetByID(ctx context.Context, id string) (*googlebooks.Volume, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	v, ok := p.volumes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", googlebooks.ErrVolumeNotFound, id)
	}
	return v, nil
}

func (p *fakeProvider) Search(ctx context.Context, query string, maxResults int) (*googlebooks.Volumes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	items := make([]googlebooks.Volume, 0, len(p.volumes))
	for _, v := range p.volumes {
		items = append(items, *v)
	}
	return &googlebooks.Volumes{Kind: "books#volumes", TotalItems: len(items), Items: items}, nil
}

func (p *fakeProvider) SearchByISBN(ctx context.Context, isbn string) (*googlebooks.Volumes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	for _, v := range p.volumes {
		if v.VolumeInfo.ISBN() == isbn {
			return &googlebooks.Volumes{TotalItems: 1, Items: []googlebooks.Volume{*v}}, nil
		}
	}
	return &googlebooks.Volumes{Items: []googlebooks.Volume{}}, nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []entities.AuditEvent
}

func (a *recordingAuditor) Record(event *entities.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *event)
}

func (a *recordingAuditor) last() entities.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[len(a.events)-1]
}

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	provider *fakeProvider
	auditor  *recordingAuditor
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := &fakeProvider{volumes: map[string]*googlebooks.Volume{}}
	auditor := &recordingAuditor{}
	return &testEnv{
		svc:      NewService(db.DB, provider, auditor),
		db:       db.DB,
		provider: provider,
		auditor:  auditor,
	}
}

// fixedClock returns a clock that can be moved by hand.
func fixedClock(start time.Time) (func() time.Time, func(time.Time)) {
	var mu sync.Mutex
	current := start
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		}, func(t time.Time) {
			mu.Lock()
			defer mu.Unlock()
			current = t
		}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestAddBook_ReflectsInput(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	published := time.Date(1843, 9, 1, 0, 0, 0, 0, time.UTC)
	in := AddBookInput{
		Title:         "Notes",
		ISBN:          strPtr("9781234567890"),
		Description:   strPtr("Notes on the Analytical Engine"),
		PublishedDate: &Date{Time: published},
		PageCount:     intPtr(66),
		Thumbnail:     strPtr("http://img/notes.jpg"),
		Language:      strPtr("en"),
		ExternalID:    strPtr("vol-notes"),
	}

	book, err := env.svc.AddBook(ctx, in)
	require.NoError(t, err)

	assert.Positive(t, book.ID)
	assert.Equal(t, "Notes", book.Title)
	assert.Equal(t, "9781234567890", *book.ISBN)
	assert.Equal(t, "Notes on the Analytical Engine", *book.Description)
	assert.True(t, published.Equal(*book.PublishedDate))
	assert.Equal(t, 66, *book.PageCount)
	assert.Equal(t, "http://img/notes.jpg", *book.Thumbnail)
	assert.Equal(t, "en", *book.Language)
	assert.Equal(t, "vol-notes", *book.GoogleBooksID)
	assert.True(t, book.CreatedAt.Equal(book.UpdatedAt))
	assert.Equal(t, time.UTC, book.CreatedAt.Location())

	event := env.auditor.last()
	assert.Equal(t, "book_add", event.Action)
	assert.Equal(t, entities.AuditStatusSuccess, event.Status)
	require.NotNil(t, event.EntityID)
	assert.Equal(t, book.ID, *event.EntityID)
}

func TestAddBook_Validation(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    AddBookInput
		field string
	}{
		{"missing title", AddBookInput{}, "title"},
		{"blank title", AddBookInput{Title: "   "}, "title"},
		{"negative page count", AddBookInput{Title: "T", PageCount: intPtr(-1)}, "pageCount"},
		{"unknown author", AddBookInput{Title: "T", AuthorIDs: []uint{41}}, "authorIds"},
		{"unknown category", AddBookInput{Title: "T", CategoryIDs: []uint{42}}, "categoryIds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AddBook(ctx, tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	assert.Zero(t, count(t, env.db, &entities.Book{}))
	assert.Equal(t, entities.AuditStatusFailed, env.auditor.last().Status)
	assert.JSONEq(t, `{"reason":"validation"}`, env.auditor.last().Metadata)
}

func TestAddBook_UnknownIDsWriteNothing(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	author, err := env.svc.AddAuthor(ctx, "Real Author")
	require.NoError(t, err)

	_, err = env.svc.AddBook(ctx, AddBookInput{Title: "Partial", AuthorIDs: []uint{author.ID, 999}})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "999")

	assert.Zero(t, count(t, env.db, &entities.Book{}))
	assert.Zero(t, count(t, env.db, &entities.BookAuthor{}))
}

func TestAddBook_DuplicateIDsCollapse(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	author, err := env.svc.AddAuthor(ctx, "Once")
	require.NoError(t, err)

	book, err := env.svc.AddBook(ctx, AddBookInput{Title: "Twice", AuthorIDs: []uint{author.ID, author.ID}})
	require.NoError(t, err)
	assert.Len(t, book.BookAuthors, 1)
	assert.EqualValues(t, 1, count(t, env.db, &entities.BookAuthor{}))
}

func TestAddBook_DuplicateExternalIDConflicts(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, err := env.svc.AddBook(ctx, AddBookInput{Title: "One", GoogleBooksID: strPtr("vol-1")})
	require.NoError(t, err)

	_, err = env.svc.AddBook(ctx, AddBookInput{Title: "Two", ExternalID: strPtr("vol-1")})
	assert.ErrorIs(t, err, ErrConflict)

	// Blank ids are stored as NULL and never collide.
	_, err = env.svc.AddBook(ctx, AddBookInput{Title: "Three", ExternalID: strPtr("")})
	require.NoError(t, err)
	_, err = env.svc.AddBook(ctx, AddBookInput{Title: "Four", ExternalID: strPtr(" ")})
	require.NoError(t, err)
}

func TestEndToEnd_AdaLovelace(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	author, err := env.svc.AddAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)
	assert.EqualValues(t, 1, author.ID)
	assert.Equal(t, "Ada Lovelace", author.Name)

	category, err := env.svc.AddCategory(ctx, "Mathematics")
	require.NoError(t, err)
	assert.EqualValues(t, 1, category.ID)

	book, err := env.svc.AddBook(ctx, AddBookInput{Title: "Notes", AuthorIDs: []uint{1}, CategoryIDs: []uint{1}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, book.ID)
	assert.Equal(t, "Notes", book.Title)

	var links []entities.BookAuthor
	require.NoError(t, env.db.Find(&links).Error)
	require.Len(t, links, 1)
	assert.EqualValues(t, 1, links[0].BookID)
	assert.EqualValues(t, 1, links[0].AuthorID)

	var catLinks []entities.BookCategory
	require.NoError(t, env.db.Find(&catLinks).Error)
	require.Len(t, catLinks, 1)
	assert.EqualValues(t, 1, catLinks[0].BookID)
	assert.EqualValues(t, 1, catLinks[0].CategoryID)

	require.Len(t, book.Authors(), 1)
	assert.Equal(t, "Ada Lovelace", book.Authors()[0].Name)
	require.Len(t, book.Categories(), 1)
	assert.Equal(t, "Mathematics", book.Categories()[0].Name)
}

func TestUpdateBook_PartialPatch(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	now, set := fixedClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	env.svc.now = now

	book, err := env.svc.AddBook(ctx, AddBookInput{
		Title:       "Draft",
		ISBN:        strPtr("111"),
		Description: strPtr("first"),
		PageCount:   intPtr(10),
		Language:    strPtr("en"),
	})
	require.NoError(t, err)

	set(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	updated, err := env.svc.UpdateBook(ctx, book.ID, UpdateBookInput{
		Title:       Some("Final"),
		Description: Null[string](),
	})
	require.NoError(t, err)

	assert.Equal(t, "Final", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Equal(t, "111", *updated.ISBN)
	assert.Equal(t, 10, *updated.PageCount)
	assert.Equal(t, "en", *updated.Language)
	assert.True(t, updated.CreatedAt.Equal(book.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(book.UpdatedAt))
}

func TestUpdateBook_UpdatedAtStrictlyIncreases(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	frozen := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now, _ := fixedClock(frozen)
	env.svc.now = now

	book, err := env.svc.AddBook(ctx, AddBookInput{Title: "Still"})
	require.NoError(t, err)

	previous := book.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := env.svc.UpdateBook(ctx, book.ID, UpdateBookInput{PageCount: Some(i)})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(previous), "update %d did not advance updatedAt", i)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
		previous = updated.UpdatedAt
	}
}

func TestUpdateBook_NotFoundLeavesStorageAlone(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	book, err := env.svc.AddBook(ctx, AddBookInput{Title: "Untouched"})
	require.NoError(t, err)

	_, err = env.svc.UpdateBook(ctx, book.ID+100, UpdateBookInput{Title: Some("Changed")})
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := env.svc.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Untouched", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(book.UpdatedAt))
	assert.EqualValues(t, 1, count(t, env.db, &entities.Book{}))
}

func TestUpdateBook_RejectsNullTitle(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	book, err := env.svc.AddBook(ctx, AddBookInput{Title: "Named"})
	require.NoError(t, err)

	_, err = env.svc.UpdateBook(ctx, book.ID, UpdateBookInput{Title: Null[string]()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.UpdateBook(ctx, book.ID, UpdateBookInput{Title: Some("")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.UpdateBook(ctx, book.ID, UpdateBookInput{PageCount: Some(-5)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteBook(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	author, err := env.svc.AddAuthor(ctx, "Author")
	require.NoError(t, err)
	category, err := env.svc.AddCategory(ctx, "Category")
	require.NoError(t, err)
	book, err := env.svc.AddBook(ctx, AddBookInput{
		Title:       "Gone",
		AuthorIDs:   []uint{author.ID},
		CategoryIDs: []uint{category.ID},
	})
	require.NoError(t, err)

	t.Run("unknown id", func(t *testing.T) {
		events := len(env.auditor.events)
		deleted, err := env.svc.DeleteBook(ctx, book.ID+1)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.EqualValues(t, 1, count(t, env.db, &entities.Book{}))
		assert.Len(t, env.auditor.events, events)
	})

	t.Run("existing id", func(t *testing.T) {
		deleted, err := env.svc.DeleteBook(ctx, book.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		assert.Zero(t, count(t, env.db, &entities.Book{}))
		assert.Zero(t, count(t, env.db, &entities.BookAuthor{}))
		assert.Zero(t, count(t, env.db, &entities.BookCategory{}))
		assert.EqualValues(t, 1, count(t, env.db, &entities.Author{}))
		assert.EqualValues(t, 1, count(t, env.db, &entities.Category{}))

		got, err := env.svc.GetBookByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestAddAuthorAndCategory(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	first, err := env.svc.AddAuthor(ctx, "  Same Name ")
	require.NoError(t, err)
	assert.Equal(t, "Same Name", first.Name)
	second, err := env.svc.AddAuthor(ctx, "Same Name")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = env.svc.AddAuthor(ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.AddCategory(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	category, err := env.svc.AddCategory(ctx, "Poetry")
	require.NoError(t, err)
	assert.False(t, category.CreatedAt.IsZero())
	assert.Equal(t, "category_add", env.auditor.last().Action)
}

func TestListing(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for _, title := range []string{"Dune", "Emma", "Dracula"} {
		_, err := env.svc.AddBook(ctx, AddBookInput{Title: title})
		require.NoError(t, err)
	}
	_, err := env.svc.AddAuthor(ctx, "Austen")
	require.NoError(t, err)
	_, err = env.svc.AddCategory(ctx, "Classics")
	require.NoError(t, err)

	result, total, err := env.svc.ListBooks(ctx, listing.Query{
		Filters: []listing.Filter{{Field: "title", Op: listing.OpStartsWith, Value: "d"}},
		Sorts:   []listing.Sort{{Field: "title", Direction: listing.Asc}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, result, 2)
	assert.Equal(t, "Dracula", result[0].Title)
	assert.Equal(t, "Dune", result[1].Title)

	_, _, err = env.svc.ListBooks(ctx, listing.Query{Filters: []listing.Filter{{Field: "nope", Op: listing.OpEq, Value: "x"}}})
	assert.ErrorIs(t, err, ErrValidation)

	authorList, err := env.svc.ListAuthors(ctx, listing.Query{})
	require.NoError(t, err)
	assert.Len(t, authorList, 1)

	categoryList, err := env.svc.ListCategories(ctx, listing.Query{})
	require.NoError(t, err)
	assert.Len(t, categoryList, 1)

	_, err = env.svc.ListCategories(ctx, listing.Query{Sorts: []listing.Sort{{Field: "title"}}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStats(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	now, set := fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	env.svc.now = now
	for i := 0; i < 7; i++ {
		set(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC))
		_, err := env.svc.AddBook(ctx, AddBookInput{Title: fmt.Sprintf("Book %d", i)})
		require.NoError(t, err)
	}
	_, err := env.svc.AddAuthor(ctx, "A")
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, stats.TotalBooks)
	assert.EqualValues(t, 1, stats.TotalAuthors)
	assert.Zero(t, stats.TotalCategories)
	require.Len(t, stats.RecentBooks, RecentBooksLimit)
	assert.Equal(t, "Book 6", stats.RecentBooks[0].Title)
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrNotFound, ErrConflict, ErrProviderUnavailable, ErrValidation}
	for i, a := range kinds {
		for j, b := range kinds {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
	assert.ErrorIs(t, newValidationError("title", "is required"), ErrValidation)
	assert.NotErrorIs(t, newValidationError("title", "is required"), ErrNotFound)
}

func TestService_ConcurrentMutationsWithAuditTrail(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := &fakeProvider{volumes: map[string]*googlebooks.Volume{}}
	const imports = 5
	for i := 0; i < imports; i++ {
		v := duneVolume()
		v.ID = fmt.Sprintf("vol-%d", i)
		v.VolumeInfo.Title = fmt.Sprintf("Imported %d", i)
		v.VolumeInfo.IndustryIdentifiers = nil
		provider.volumes[v.ID] = v
	}

	auditSvc := audit.NewService(auditrepo.NewRepository(db.DB))
	svc := NewService(db.DB, provider, auditSvc)

	const adds = 20
	ctx := context.Background()
	errs := make(chan error, adds+imports)
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddBook(ctx, AddBookInput{Title: fmt.Sprintf("Book %d", i)})
			errs <- err
		}(i)
	}
	for i := 0; i < imports; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ImportBook(ctx, fmt.Sprintf("vol-%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	auditSvc.Wait()

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(adds+imports), count(t, db.DB, &entities.Book{}))
	assert.Equal(t, int64(adds+imports), count(t, db.DB, &entities.AuditEvent{}))
}

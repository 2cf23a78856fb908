package authors

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookstack/internal/database"
	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "authors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRepository_GetOrCreate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	author, created, err := repo.GetOrCreate(ctx, "Ursula K. Le Guin", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, author.ID)

	again, created, err := repo.GetOrCreate(ctx, "Ursula K. Le Guin", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, author.ID, again.ID)

	// Lookup is exact; a different case is a different author.
	other, created, err := repo.GetOrCreate(ctx, "ursula k. le guin", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, author.ID, other.ID)
}

func TestRepository_DuplicateNamesAllowed(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	first := &entities.Author{Name: "Anonymous", CreatedAt: now}
	second := &entities.Author{Name: "Anonymous", CreatedAt: now}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	found, err := repo.FindByName(ctx, "Anonymous")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepository_ListAndExistingIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	names := []string{"Borges", "Calvino", "Eco"}
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		a := &entities.Author{Name: name, CreatedAt: now}
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID)
	}

	book := entities.Book{Title: "Anthology", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Omit("BookAuthors", "BookCategories").Create(&book).Error)
	require.NoError(t, db.Create(&entities.BookAuthor{BookID: book.ID, AuthorID: ids[1]}).Error)

	all, err := repo.List(ctx, listing.Query{Sorts: []listing.Sort{{Field: "name", Direction: listing.Desc}}})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Eco", all[0].Name)
	assert.Equal(t, "Calvino", all[1].Name)
	require.Len(t, all[1].BookAuthors, 1)
	assert.Equal(t, book.ID, all[1].BookAuthors[0].BookID)

	found, err := repo.ExistingIDs(ctx, []uint{ids[0], 999, ids[2]})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{ids[0], ids[2]}, found)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

// Package authors provides database operations for authors.
package authors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookstack/internal/database/listing"
	"github.com/mrlokans/bookstack/internal/entities"
)

var Schema = listing.Schema{
	"id":        {Name: "id", Kind: listing.KindInt},
	"name":      {Name: "name", Kind: listing.KindText},
	"createdAt": {Name: "created_at", Kind: listing.KindTime},
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, author *entities.Author) error {
	return r.db.WithContext(ctx).Omit("BookAuthors").Create(author).Error
}

// FindByName looks an author up by exact name. With duplicates the oldest
// row wins.
func (r *Repository) FindByName(ctx context.Context, name string) (*entities.Author, error) {
	var author entities.Author
	err := r.db.WithContext(ctx).Where(listing.ExactMatch(r.db, "name"), name).Order("id ASC").First(&author).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetOrCreate returns the author with exactly this name, creating it when
// absent. The boolean reports whether a row was created.
func (r *Repository) GetOrCreate(ctx context.Context, name string, now time.Time) (*entities.Author, bool, error) {
	author, err := r.FindByName(ctx, name)
	if err == nil {
		return author, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up author %q: %w", name, err)
	}

	author = &entities.Author{Name: name, CreatedAt: now}
	if err := r.Create(ctx, author); err != nil {
		return nil, false, fmt.Errorf("failed to create author %q: %w", name, err)
	}
	return author, true, nil
}

// List returns matching authors with their book links preloaded.
func (r *Repository) List(ctx context.Context, q listing.Query) ([]entities.Author, error) {
	scoped, err := Schema.Apply(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}
	var authors []entities.Author
	if err := scoped.Preload("BookAuthors").Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// ExistingIDs returns the subset of ids that reference stored authors.
func (r *Repository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var found []uint
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).Model(&entities.Author{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Author{}).Count(&count).Error
	return count, err
}

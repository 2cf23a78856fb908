// Package categories provides database operations for categories.
package categories

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

func (r *Repository) Create(ctx context.Context, category *entities.Category) error {
	return r.db.WithContext(ctx).Omit("BookCategories").Create(category).Error
}

// FindByName matches the name exactly, case included.
func (r *Repository) FindByName(ctx context.Context, name string) (*entities.Category, error) {
	var category entities.Category
	err := r.db.WithContext(ctx).Where(listing.ExactMatch(r.db, "name"), name).Order("id ASC").First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetOrCreate mirrors authors.Repository.GetOrCreate.
func (r *Repository) GetOrCreate(ctx context.Context, name string, now time.Time) (*entities.Category, bool, error) {
	category, err := r.FindByName(ctx, name)
	if err == nil {
		return category, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	category = &entities.Category{Name: name, CreatedAt: now}
	if err := r.Create(ctx, category); err != nil {
		return nil, false, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return category, true, nil
}

// List returns matching categories with their book links preloaded.
func (r *Repository) List(ctx context.Context, q listing.Query) ([]entities.Category, error) {
	scoped, err := Schema.Apply(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}
	var categories []entities.Category
	if err := scoped.Preload("BookCategories").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var found []uint
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Count(&count).Error
	return count, err
}

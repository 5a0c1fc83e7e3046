package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reports-service/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	CategoryCacheTTL     = 30 * time.Minute // Categories rarely change
	CategoryListCacheTTL = 15 * time.Minute
)

const (
	categoryNameKeyPrefix = "reports:taxonomy:category:"
	categoryListKey       = "reports:taxonomy:list"
)

// CategoryRepository is the Postgres-backed TaxonomyStore with an optional redis read cache.
// Only positive lookups are cached, so a category created by another writer is never hidden.
type CategoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCategoryRepository(db *gorm.DB, redis *redis.Client) *CategoryRepository {
	return &CategoryRepository{
		db:    db,
		redis: redis,
	}
}

func categoryNameKey(name string) string {
	return categoryNameKeyPrefix + models.NormalizeName(name)
}

// invalidateCategoryCaches drops the cached entry for a category and the list cache
func (r *CategoryRepository) invalidateCategoryCaches(ctx context.Context, name string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, categoryNameKey(name), categoryListKey)
}

func (r *CategoryRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.redis == nil {
		return false
	}
	val, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

func (r *CategoryRepository) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err == nil {
		r.redis.Set(ctx, key, data, ttl)
	}
}

func preloadSubcategories(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// FindCategoryByName retrieves a category by case-insensitive name with its subcategories
func (r *CategoryRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	key := categoryNameKey(name)

	var category models.Category
	if r.cacheGet(ctx, key, &category) {
		return &category, nil
	}

	err := r.db.WithContext(ctx).
		Preload("Subcategories", preloadSubcategories).
		Where("LOWER(name) = ?", models.NormalizeName(name)).
		First(&category).Error
	if err != nil {
		return nil, translateError(err)
	}

	r.cacheSet(ctx, key, category, CategoryCacheTTL)
	return &category, nil
}

// CreateCategory persists a new category
func (r *CategoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Omit("Subcategories").Create(category).Error; err != nil {
		return translateError(err)
	}
	r.invalidateCategoryCaches(ctx, category.Name)
	return nil
}

// AddSubcategory persists sub under category
func (r *CategoryRepository) AddSubcategory(ctx context.Context, category *models.Category, sub *models.Subcategory) error {
	sub.CategoryID = category.ID
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return translateError(err)
	}
	category.Subcategories = append(category.Subcategories, *sub)
	r.invalidateCategoryCaches(ctx, category.Name)
	return nil
}

// CategorySlugExists checks if a category slug is taken
func (r *CategoryRepository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// NextCategoryPosition returns one past the highest category position
func (r *CategoryRepository) NextCategoryPosition(ctx context.Context) (int, error) {
	var maxPosition *int
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Select("MAX(position)").
		Scan(&maxPosition).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read category positions: %w", err)
	}
	if maxPosition == nil {
		return 1, nil
	}
	return *maxPosition + 1, nil
}

// ListCategories retrieves all categories ordered by position
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if r.cacheGet(ctx, categoryListKey, &categories) {
		return categories, nil
	}

	err := r.db.WithContext(ctx).
		Preload("Subcategories", preloadSubcategories).
		Order("position ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, categoryListKey, categories, CategoryListCacheTTL)
	return categories, nil
}

// GetCategoryBySlug retrieves a category by slug
func (r *CategoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Preload("Subcategories", preloadSubcategories).
		Where("slug = ?", slug).
		First(&category).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &category, nil
}

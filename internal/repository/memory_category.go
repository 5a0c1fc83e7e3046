package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reports-service/internal/models"

	"github.com/google/uuid"
)

// MemoryCategoryStore is an in-process TaxonomyStore
type MemoryCategoryStore struct {
	mu         sync.Mutex
	categories []models.Category
}

func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{}
}

func cloneCategory(c models.Category) *models.Category {
	out := c
	out.Subcategories = make([]models.Subcategory, len(c.Subcategories))
	copy(out.Subcategories, c.Subcategories)
	return &out
}

func (s *MemoryCategoryStore) indexByName(name string) int {
	key := models.NormalizeName(name)
	for i := range s.categories {
		if models.NormalizeName(s.categories[i].Name) == key {
			return i
		}
	}
	return -1
}

func (s *MemoryCategoryStore) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexByName(name)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return cloneCategory(s.categories[idx]), nil
}

func (s *MemoryCategoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexByName(category.Name) >= 0 {
		return fmt.Errorf("%w: category %q already exists", ErrDuplicateKey, category.Name)
	}
	for i := range s.categories {
		if s.categories[i].Slug == category.Slug {
			return fmt.Errorf("%w: category slug %q already exists", ErrDuplicateKey, category.Slug)
		}
	}

	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	now := time.Now()
	category.CreatedAt, category.UpdatedAt = now, now
	category.Subcategories = nil
	s.categories = append(s.categories, *cloneCategory(*category))
	return nil
}

func (s *MemoryCategoryStore) AddSubcategory(ctx context.Context, category *models.Category, sub *models.Subcategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.categories {
		if s.categories[i].ID == category.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("category %s: %w", category.ID, ErrNotFound)
	}

	stored := &s.categories[idx]
	if stored.FindSubcategory(sub.Name) != nil || stored.HasSubcategorySlug(sub.Slug) {
		return fmt.Errorf("%w: subcategory %q already exists in %q", ErrDuplicateKey, sub.Name, stored.Name)
	}

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CategoryID = stored.ID
	now := time.Now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	stored.Subcategories = append(stored.Subcategories, *sub)
	category.Subcategories = append(category.Subcategories, *sub)
	return nil
}

func (s *MemoryCategoryStore) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryCategoryStore) NextCategoryPosition(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for i := range s.categories {
		if s.categories[i].Position > max {
			max = s.categories[i].Position
		}
	}
	return max + 1, nil
}

func (s *MemoryCategoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.categories))
	for i := range s.categories {
		out = append(out, *cloneCategory(s.categories[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *MemoryCategoryStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].Slug == slug {
			return cloneCategory(s.categories[i]), nil
		}
	}
	return nil, ErrNotFound
}

package importer

import (
	"context"
	"errors"
	"strings"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/sirupsen/logrus"
)

// Notifier receives pipeline lifecycle events. Implementations must not block for long.
type Notifier interface {
	CategoryCreated(ctx context.Context, category *models.Category)
	SubcategoryCreated(ctx context.Context, category *models.Category, sub *models.Subcategory)
	ImportCompleted(ctx context.Context, fileName string, result *models.ImportResult)
}

type nopNotifier struct{}

func (nopNotifier) CategoryCreated(context.Context, *models.Category)                         {}
func (nopNotifier) SubcategoryCreated(context.Context, *models.Category, *models.Subcategory) {}
func (nopNotifier) ImportCompleted(context.Context, string, *models.ImportResult)             {}

// CategoryResolution is the result of EnsureCategory
type CategoryResolution struct {
	Category *models.Category
	Created  bool
}

// SubcategoryResolution is the result of EnsureSubcategory
type SubcategoryResolution struct {
	Category           *models.Category
	Subcategory        *models.Subcategory
	CategoryCreated    bool
	SubcategoryCreated bool
}

// TaxonomyResolver finds or creates categories and subcategories by name for one run.
// Nodes are persisted as soon as they are created so later rows observe them.
type TaxonomyResolver struct {
	store    repository.TaxonomyStore
	notifier Notifier
	log      *logrus.Entry

	// positive-only: a name is cached once it is known to exist
	known map[string]*models.Category
	slugs *SlugGenerator
}

func NewTaxonomyResolver(store repository.TaxonomyStore, notifier Notifier, log *logrus.Entry) *TaxonomyResolver {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TaxonomyResolver{
		store:    store,
		notifier: notifier,
		log:      log,
		known:    make(map[string]*models.Category),
		slugs:    NewSlugGenerator("category"),
	}
}

func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// EnsureCategory returns the category named name, creating it on first reference
func (r *TaxonomyResolver) EnsureCategory(ctx context.Context, name string) (CategoryResolution, error) {
	name = cleanName(name)
	if name == "" {
		return CategoryResolution{}, &TaxonomyCreationError{Err: errors.New("category name is empty")}
	}
	key := models.NormalizeName(name)
	if category, ok := r.known[key]; ok {
		return CategoryResolution{Category: category}, nil
	}

	category, err := r.store.FindCategoryByName(ctx, name)
	if err == nil {
		r.known[key] = category
		return CategoryResolution{Category: category}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return CategoryResolution{}, &TaxonomyCreationError{Category: name, Err: err}
	}

	position, err := r.store.NextCategoryPosition(ctx)
	if err != nil {
		return CategoryResolution{}, &TaxonomyCreationError{Category: name, Err: err}
	}
	slug, err := r.slugs.Unique(ctx, name, "", r.store.CategorySlugExists)
	if err != nil {
		return CategoryResolution{}, &TaxonomyCreationError{Category: name, Err: err}
	}

	category = &models.Category{
		Name:     name,
		Slug:     slug,
		Position: position,
		IsActive: true,
	}
	if err := r.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// someone else created it first
			if existing, findErr := r.store.FindCategoryByName(ctx, name); findErr == nil {
				r.known[key] = existing
				return CategoryResolution{Category: existing}, nil
			}
		}
		return CategoryResolution{}, &TaxonomyCreationError{Category: name, Err: err}
	}

	r.known[key] = category
	r.log.WithFields(logrus.Fields{"category": name, "slug": slug}).Info("Created category")
	r.notifier.CategoryCreated(ctx, category)
	return CategoryResolution{Category: category, Created: true}, nil
}

// EnsureSubcategory ensures categoryName exists and holds a subcategory named subName
func (r *TaxonomyResolver) EnsureSubcategory(ctx context.Context, categoryName, subName string) (SubcategoryResolution, error) {
	parent, err := r.EnsureCategory(ctx, categoryName)
	if err != nil {
		return SubcategoryResolution{}, err
	}
	res := SubcategoryResolution{Category: parent.Category, CategoryCreated: parent.Created}

	subName = cleanName(subName)
	if subName == "" {
		return res, nil
	}
	category := parent.Category
	if sub := category.FindSubcategory(subName); sub != nil {
		res.Subcategory = sub
		return res, nil
	}

	slug, err := NewSlugGenerator("subcategory").Unique(ctx, subName, "", func(_ context.Context, s string) (bool, error) {
		return category.HasSubcategorySlug(s), nil
	})
	if err != nil {
		return res, &TaxonomyCreationError{Category: category.Name, Subcategory: subName, Err: err}
	}

	sub := &models.Subcategory{
		Name:     subName,
		Slug:     slug,
		Position: len(category.Subcategories) + 1,
		IsActive: true,
	}
	if err := r.store.AddSubcategory(ctx, category, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			if fresh, findErr := r.store.FindCategoryByName(ctx, category.Name); findErr == nil {
				r.known[models.NormalizeName(category.Name)] = fresh
				res.Category = fresh
				if existing := fresh.FindSubcategory(subName); existing != nil {
					res.Subcategory = existing
					return res, nil
				}
			}
		}
		return res, &TaxonomyCreationError{Category: category.Name, Subcategory: subName, Err: err}
	}

	res.Subcategory = &category.Subcategories[len(category.Subcategories)-1]
	res.SubcategoryCreated = true
	r.log.WithFields(logrus.Fields{"category": category.Name, "subcategory": subName, "slug": slug}).Info("Created subcategory")
	r.notifier.SubcategoryCreated(ctx, category, res.Subcategory)
	return res, nil
}

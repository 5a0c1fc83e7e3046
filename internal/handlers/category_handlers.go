package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaxonomyReader is the read side of the taxonomy store
type TaxonomyReader interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
}

type CategoryHandler struct {
	repo TaxonomyReader
	log  *logrus.Entry
}

func NewCategoryHandler(repo TaxonomyReader, log *logrus.Entry) *CategoryHandler {
	return &CategoryHandler{
		repo: repo,
		log:  log.WithField("component", "category_handler"),
	}
}

// GetCategoryList returns every category with its subcategories, ordered by position
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {object} models.CategoryListResponse
// @Router /categories [get]
func (h *CategoryHandler) GetCategoryList(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list categories")
		abortWithError(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list categories")
		return
	}

	total := int64(len(categories))
	c.JSON(http.StatusOK, models.CategoryListResponse{
		Success: true,
		Data:    categories,
		Pagination: &models.PaginationInfo{
			Page:       1,
			Limit:      len(categories),
			Total:      total,
			TotalPages: 1,
		},
	})
}

// GetCategory gets a category by slug
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param slug path string true "Category slug"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{slug} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	category, err := h.repo.GetCategoryBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
			return
		}
		h.log.WithError(err).WithField("slug", slug).Error("Failed to get category")
		abortWithError(c, http.StatusInternalServerError, "GET_FAILED", "Failed to get category")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": category})
}

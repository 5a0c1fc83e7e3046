package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCategoryRouter(t *testing.T) (*gin.Engine, *repository.MemoryCategoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryCategoryStore()
	ctx := context.Background()
	energy := &models.Category{Name: "Energy", Slug: "energy", Position: 2}
	require.NoError(t, store.CreateCategory(ctx, energy))
	require.NoError(t, store.AddSubcategory(ctx, energy, &models.Subcategory{Name: "Solar", Slug: "solar", Position: 1}))
	require.NoError(t, store.CreateCategory(ctx, &models.Category{Name: "Automotive", Slug: "automotive", Position: 1}))

	h := NewCategoryHandler(store, testLog())
	router := gin.New()
	router.GET("/api/categories", h.GetCategoryList)
	router.GET("/api/categories/:slug", h.GetCategory)
	return router, store
}

func TestGetCategoryList(t *testing.T) {
	router, _ := setupCategoryRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.CategoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Automotive", resp.Data[0].Name)
	assert.Equal(t, "Energy", resp.Data[1].Name)
	require.Len(t, resp.Data[1].Subcategories, 1)
	assert.Equal(t, int64(2), resp.Pagination.Total)
}

func TestGetCategory(t *testing.T) {
	router, _ := setupCategoryRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/Energy", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data models.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "energy", resp.Data.Slug)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/mining", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", errorCode(t, w))
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthCheck)
	router.GET("/ready", ReadyCheck(map[string]Pinger{"database": stubPinger{}, "cache": nil}))
	router.GET("/ready-down", ReadyCheck(map[string]Pinger{"database": stubPinger{err: errors.New("connection refused")}}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready-down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

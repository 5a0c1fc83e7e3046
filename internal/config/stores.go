package config

import (
	"fmt"
	"log"

	"reports-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Stores bundles the catalog and taxonomy stores selected by STORAGE_DRIVER
type Stores struct {
	Catalog  repository.CatalogStore
	Taxonomy repository.TaxonomyStore

	DB    *gorm.DB
	Redis *redis.Client
}

// OpenStores connects the configured backend. The memory driver keeps
// everything in process and is lost on restart.
func OpenStores(cfg *Config) (*Stores, error) {
	switch cfg.StorageDriver {
	case StorageMemory:
		log.Println("WARNING: Using in-memory storage (data is not persisted)")
		return &Stores{
			Catalog:  repository.NewMemoryReportStore(),
			Taxonomy: repository.NewMemoryCategoryStore(),
		}, nil
	case StoragePostgres:
		db, err := InitDB(cfg)
		if err != nil {
			return nil, err
		}
		redisClient := InitRedis(cfg)
		return &Stores{
			Catalog:  repository.NewReportRepository(db),
			Taxonomy: repository.NewCategoryRepository(db, redisClient),
			DB:       db,
			Redis:    redisClient,
		}, nil
	}
	return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (allowed: %s, %s)", cfg.StorageDriver, StoragePostgres, StorageMemory)
}

// Close releases database and cache connections
func (s *Stores) Close() {
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

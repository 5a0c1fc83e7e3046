package repository

import (
	"fmt"

	"reports-service/internal/models"

	"gorm.io/gorm"
)

// Unique indexes gorm tags cannot express. Names must not collide with
// tag-derived indexes, or IF NOT EXISTS silently keeps the non-unique one.
var schemaIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_lower_name ON categories (LOWER(name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_subcategories_parent_lower_name ON subcategories (category_id, LOWER(name))`,
	// plain index left behind by older schemas
	`DROP INDEX IF EXISTS idx_reports_report_code`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_report_code_unique ON reports (report_code) WHERE report_code <> ''`,
}

// Migrate creates or updates the catalog and taxonomy tables and their unique indexes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Category{}, &models.Subcategory{}, &models.Report{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	for _, stmt := range schemaIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a top-level taxonomy node used to classify reports
type Category struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	Name          string        `json:"name" gorm:"not null"`
	Slug          string        `json:"slug" gorm:"not null;uniqueIndex"`
	Description   string        `json:"description,omitempty"`
	Position      int           `json:"position" gorm:"not null;default:1"`
	IsActive      bool          `json:"isActive" gorm:"default:true"`
	Subcategories []Subcategory `json:"subcategories" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Subcategory belongs to exactly one Category. Name and slug are unique within the parent.
type Subcategory struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CategoryID uuid.UUID `json:"categoryId" gorm:"type:uuid;not null;index;uniqueIndex:idx_subcategory_parent_slug"`
	Name       string    `json:"name" gorm:"not null"`
	Slug       string    `json:"slug" gorm:"not null;uniqueIndex:idx_subcategory_parent_slug"`
	Position   int       `json:"position" gorm:"not null;default:1"`
	IsActive   bool      `json:"isActive" gorm:"default:true"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (s *Subcategory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// FindSubcategory returns the subcategory whose name matches case-insensitively, or nil
func (c *Category) FindSubcategory(name string) *Subcategory {
	key := NormalizeName(name)
	for i := range c.Subcategories {
		if NormalizeName(c.Subcategories[i].Name) == key {
			return &c.Subcategories[i]
		}
	}
	return nil
}

// HasSubcategorySlug reports whether slug is already used by a subcategory of c
func (c *Category) HasSubcategorySlug(slug string) bool {
	for i := range c.Subcategories {
		if c.Subcategories[i].Slug == slug {
			return true
		}
	}
	return false
}

// NormalizeName folds a taxonomy name for case-insensitive comparison
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// PaginationInfo represents pagination information
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// CategoryListResponse represents a list of categories response
type CategoryListResponse struct {
	Success    bool            `json:"success"`
	Data       []Category      `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Error represents error details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the Subcategory model
func (Subcategory) TableName() string {
	return "subcategories"
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus represents the publication state of a report
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusPublished ReportStatus = "published"
	ReportStatusArchived  ReportStatus = "archived"
)

// ParseReportStatus maps free-text spreadsheet values onto a known status.
// Unknown or empty values fall back to def.
func ParseReportStatus(value string, def ReportStatus) ReportStatus {
	switch NormalizeName(value) {
	case "draft", "inactive", "unpublished", "pending":
		return ReportStatusDraft
	case "published", "publish", "active", "live":
		return ReportStatusPublished
	case "archived", "archive":
		return ReportStatusArchived
	}
	return def
}

// Report is a market-research report in the catalog.
// Category and SubCategory are free-text names; CategoryID/SubCategoryID link to the
// taxonomy when it could be resolved.
type Report struct {
	ID               uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	Title            string       `json:"title" gorm:"not null;index"`
	SubTitle         string       `json:"subTitle,omitempty"`
	Slug             string       `json:"slug" gorm:"not null;uniqueIndex"`
	ReportCode       string       `json:"reportCode,omitempty"`
	Category         string       `json:"category,omitempty"`
	SubCategory      string       `json:"subCategory,omitempty"`
	CategoryID       *uuid.UUID   `json:"categoryId,omitempty" gorm:"type:uuid;index"`
	SubCategoryID    *uuid.UUID   `json:"subCategoryId,omitempty" gorm:"type:uuid"`
	Overview         string       `json:"overview,omitempty" gorm:"type:text"`
	TableOfContents  string       `json:"tableOfContents,omitempty" gorm:"type:text"`
	SegmentCompanies string       `json:"segmentCompanies,omitempty" gorm:"type:text"`
	Region           string       `json:"region,omitempty"`
	BaseYear         string       `json:"baseYear,omitempty"`
	ForecastPeriod   string       `json:"forecastPeriod,omitempty"`
	Pages            int          `json:"pages,omitempty"`

	SingleUserPrice    float64 `json:"singleUserPrice"`
	MultiUserPrice     float64 `json:"multiUserPrice"`
	EnterprisePrice    float64 `json:"enterprisePrice"`
	ExcelDataPackPrice float64 `json:"excelDataPackPrice"`

	TitleTag        string `json:"titleTag,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty" gorm:"type:text"`
	Keywords        string `json:"keywords,omitempty" gorm:"type:text"`

	Status      ReportStatus `json:"status" gorm:"not null;default:'published'"`
	Featured    bool         `json:"featured"`
	Popular     bool         `json:"popular"`
	Author      string       `json:"author,omitempty"`
	PublishDate time.Time    `json:"publishDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// BeforeCreate assigns the ID when the caller left it empty
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

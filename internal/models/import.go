package models

import "fmt"

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
	ImportFormatXLS  ImportFormat = "xls"
)

// DuplicateStrategy is the caller-selected policy for rows that match an existing report
type DuplicateStrategy string

const (
	// StrategySkip leaves existing reports untouched and counts the row as skipped
	StrategySkip DuplicateStrategy = "skip"
	// StrategyCreate always inserts, even when a matching report exists
	StrategyCreate DuplicateStrategy = "create"
	// StrategyUpdate updates the matching report in place or inserts when none exists
	StrategyUpdate DuplicateStrategy = "update"
)

// ParseDuplicateStrategy validates a strategy string. Empty input selects StrategyUpdate.
func ParseDuplicateStrategy(value string) (DuplicateStrategy, error) {
	switch DuplicateStrategy(NormalizeName(value)) {
	case "":
		return StrategyUpdate, nil
	case StrategySkip:
		return StrategySkip, nil
	case StrategyCreate:
		return StrategyCreate, nil
	case StrategyUpdate:
		return StrategyUpdate, nil
	}
	return "", fmt.Errorf("unknown duplicate handling %q (allowed: skip, create, update)", value)
}

// MatchedBy names the key a duplicate match was found on
type MatchedBy string

const (
	MatchedByCode  MatchedBy = "code"
	MatchedBySlug  MatchedBy = "slug"
	MatchedByTitle MatchedBy = "title"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Type        string   `json:"type"`
	Example     string   `json:"example"`
	Aliases     []string `json:"aliases,omitempty"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row        int    `json:"row"`
	Title      string `json:"title"`
	ReportCode string `json:"reportCode,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// ImportResult is the aggregate outcome of one bulk-upload run
type ImportResult struct {
	Success              bool              `json:"success"`
	RunID                string            `json:"runId"`
	Strategy             DuplicateStrategy `json:"strategy"`
	Total                int               `json:"total"`
	Inserted             int               `json:"inserted"`
	Updated              int               `json:"updated"`
	Skipped              int               `json:"skipped"`
	Failed               int               `json:"failed"`
	SuccessRate          float64           `json:"successRate"`
	DurationSeconds      float64           `json:"durationSeconds"`
	RecordsPerSecond     float64           `json:"recordsPerSecond"`
	CategoriesCreated    int               `json:"categoriesCreated"`
	SubcategoriesCreated int               `json:"subcategoriesCreated"`
	BatchSize            int               `json:"batchSize"`
	Batches              int               `json:"batches"`
	FallbackBatches      int               `json:"fallbackBatches"`
	TotalErrors          int               `json:"totalErrors"`
	ErrorsTruncated      bool              `json:"errorsTruncated"`
	Errors               []ImportRowError  `json:"errors"`
}

// Processed returns the number of rows that reached a final outcome
func (r *ImportResult) Processed() int {
	return r.Inserted + r.Updated + r.Skipped + r.Failed
}

// Succeeded returns the number of rows inserted, updated or deliberately skipped
func (r *ImportResult) Succeeded() int {
	return r.Inserted + r.Updated + r.Skipped
}

// DuplicateEntry describes one row that matches an existing report
type DuplicateEntry struct {
	Row        int       `json:"row"`
	Title      string    `json:"title"`
	ReportCode string    `json:"reportCode,omitempty"`
	ExistingID string    `json:"existingId"`
	MatchedBy  MatchedBy `json:"matchedBy"`
}

// DuplicateCheckResult is returned by the dry-run duplicate check
type DuplicateCheckResult struct {
	Success        bool             `json:"success"`
	TotalRecords   int              `json:"totalRecords"`
	Duplicates     []DuplicateEntry `json:"duplicates"`
	DuplicateCount int              `json:"duplicateCount"`
}

package importer

import (
	"strings"

	"reports-service/internal/models"
)

// Field is a canonical report attribute
type Field string

const (
	FieldTitle            Field = "title"
	FieldSubTitle         Field = "subTitle"
	FieldSlug             Field = "slug"
	FieldReportCode       Field = "reportCode"
	FieldCategory         Field = "category"
	FieldSubCategory      Field = "subCategory"
	FieldOverview         Field = "overview"
	FieldTableOfContents  Field = "tableOfContents"
	FieldSegmentCompanies Field = "segmentCompanies"
	FieldSegmentation     Field = "segmentation"
	FieldCompanies        Field = "companies"
	FieldRegion           Field = "region"
	FieldBaseYear         Field = "baseYear"
	FieldForecastPeriod   Field = "forecastPeriod"
	FieldPages            Field = "pages"
	FieldSingleUserPrice  Field = "singleUserPrice"
	FieldMultiUserPrice   Field = "multiUserPrice"
	FieldEnterprisePrice  Field = "enterprisePrice"
	FieldDataPackPrice    Field = "excelDataPackPrice"
	FieldTitleTag         Field = "titleTag"
	FieldMetaDescription  Field = "metaDescription"
	FieldKeywords         Field = "keywords"
	FieldStatus           Field = "status"
	FieldFeatured         Field = "featured"
	FieldPopular          Field = "popular"
	FieldAuthor           Field = "author"
	FieldPublishDate      Field = "publishDate"
)

// FieldSpec lists the accepted header spellings of a field in priority order.
// Aliases[0] is the header written to import templates.
type FieldSpec struct {
	Field       Field
	Aliases     []string
	Description string
	Required    bool
	Type        string
	Example     string
}

// FieldSpecs is the alias table, in template column order
var FieldSpecs = []FieldSpec{
	{FieldTitle, []string{"Report Title", "Title", "Report Name", "Name"}, "Report title, at least 3 characters", true, "string", "Global Electric Vehicle Market"},
	{FieldSubTitle, []string{"Sub Title", "Subtitle", "Report Subtitle", "Sub-Title"}, "Secondary headline", false, "string", "Size, Share & Trends Analysis 2024-2030"},
	{FieldSlug, []string{"Slug", "URL Slug", "Report Slug"}, "URL slug (derived from the title if empty)", false, "string", "global-electric-vehicle-market"},
	{FieldReportCode, []string{"Report Code", "Report ID", "Code", "SKU"}, "Unique report code, used as the duplicate key when present", false, "string", "MR-AUTO-1024"},
	{FieldCategory, []string{"Report Categories", "Report Category", "Categories", "Category", "Domain", "Industry", "Sector", "Vertical"}, "Category name (created if missing)", false, "string", "Automotive"},
	{FieldSubCategory, []string{"Sub Category", "Subcategory", "Sub-Category", "Report Sub Category", "Sub Categories", "Sub Domain", "Sub Industry"}, "Subcategory name within the category (created if missing)", false, "string", "Electric Vehicles"},
	{FieldOverview, []string{"Report Overview", "Overview", "Report Description", "Description", "Report Summary", "Summary"}, "Overview text; bullets, numbered lists and headings are detected", false, "text", "The global EV market is expanding rapidly."},
	{FieldTableOfContents, []string{"Table of Contents", "Table Of Content", "TOC", "Contents"}, "Table of contents; numbered sections become headings", false, "text", "1. Introduction\n1.1 Scope\n2. Market Dynamics"},
	{FieldSegmentCompanies, []string{"Segmentation & Companies", "Segmentation and Companies", "Segment Companies", "Segments & Companies", "Key Segments & Companies"}, "Combined segmentation and company coverage", false, "text", "By Type:\n- BEV\n- PHEV"},
	{FieldSegmentation, []string{"Segmentation", "Market Segmentation", "Report Segmentation", "Segments"}, "Segmentation (used when the combined column is absent)", false, "text", "- BEV\n- PHEV"},
	{FieldCompanies, []string{"Companies", "Key Players", "Key Companies", "Companies Profiled", "Companies Covered"}, "Companies covered (used when the combined column is absent)", false, "text", "- Tesla\n- BYD"},
	{FieldRegion, []string{"Region", "Regions", "Geography"}, "Geographic coverage", false, "string", "Global"},
	{FieldBaseYear, []string{"Base Year"}, "Base year of the estimates", false, "string", "2023"},
	{FieldForecastPeriod, []string{"Forecast Period", "Forecast Years", "Forecast"}, "Forecast period", false, "string", "2024-2030"},
	{FieldPages, []string{"Pages", "No. of Pages", "Number of Pages", "Page Count"}, "Number of pages", false, "number", "180"},
	{FieldSingleUserPrice, []string{"Single User Price", "Single User License", "Single User", "Price"}, "Single user licence price", false, "number", "3950"},
	{FieldMultiUserPrice, []string{"Multi User Price", "Multi User License", "Multi User"}, "Multi user licence price", false, "number", "4950"},
	{FieldEnterprisePrice, []string{"Enterprise Price", "Enterprise License", "Corporate License", "Enterprise"}, "Enterprise licence price", false, "number", "6950"},
	{FieldDataPackPrice, []string{"Excel Data Pack Price", "Excel Datapack Price", "Data Pack Price", "Data Pack"}, "Excel data pack price", false, "number", "1950"},
	{FieldTitleTag, []string{"Title Tag", "Meta Title", "SEO Title"}, "HTML title tag", false, "string", "Electric Vehicle Market Report 2030"},
	{FieldMetaDescription, []string{"Meta Description", "SEO Description", "Meta Desc"}, "Meta description", false, "string", "EV market size, share and forecast."},
	{FieldKeywords, []string{"Keywords", "Meta Keywords", "SEO Keywords", "Tags"}, "Comma-separated keywords", false, "string", "ev,electric vehicles,automotive"},
	{FieldStatus, []string{"Status", "Report Status"}, "draft, published or archived", false, "string", "published"},
	{FieldFeatured, []string{"Featured", "Is Featured"}, "Featured flag (yes/no)", false, "boolean", "no"},
	{FieldPopular, []string{"Popular", "Is Popular"}, "Popular flag (yes/no)", false, "boolean", "yes"},
	{FieldAuthor, []string{"Author", "Author Name", "Analyst"}, "Author or analyst", false, "string", "Research Team"},
	{FieldPublishDate, []string{"Publish Date", "Published Date", "Publication Date", "Published On", "Release Date", "Date"}, "Publication date (YYYY-MM-DD)", false, "date", "2024-03-15"},
}

// Fields holds the resolved value of each canonical field. Missing fields read as "".
type Fields map[Field]string

func (f Fields) Get(field Field) string {
	return f[field]
}

// normalizeHeader folds a header for alias comparison: trimmed, lower-cased,
// whitespace collapsed and a trailing required-marker "*" removed.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, "*")
	return models.NormalizeName(h)
}

// FieldResolver maps the headers of one sheet onto canonical fields
type FieldResolver struct {
	columns  map[Field][]string
	unmapped []string
}

// NewFieldResolver indexes headers once so each row lookup is a few map reads
func NewFieldResolver(headers []string) *FieldResolver {
	byNorm := make(map[string][]string, len(headers))
	for _, h := range headers {
		if h == "" {
			continue
		}
		n := normalizeHeader(h)
		byNorm[n] = append(byNorm[n], h)
	}

	used := make(map[string]bool)
	columns := make(map[Field][]string, len(FieldSpecs))
	for _, spec := range FieldSpecs {
		for _, alias := range spec.Aliases {
			n := normalizeHeader(alias)
			if hs, ok := byNorm[n]; ok {
				columns[spec.Field] = append(columns[spec.Field], hs...)
				used[n] = true
			}
		}
	}

	var unmapped []string
	for _, h := range headers {
		if h != "" && !used[normalizeHeader(h)] {
			unmapped = append(unmapped, h)
		}
	}
	return &FieldResolver{columns: columns, unmapped: unmapped}
}

// Has reports whether the sheet carries any column for field
func (r *FieldResolver) Has(field Field) bool {
	return len(r.columns[field]) > 0
}

// Unmapped returns the headers that no canonical field accepts
func (r *FieldResolver) Unmapped() []string {
	return r.unmapped
}

// Resolve returns the first non-empty value per field, in alias priority order
func (r *FieldResolver) Resolve(row RawRow) Fields {
	out := make(Fields, len(r.columns))
	for field, headers := range r.columns {
		for _, h := range headers {
			if v := strings.TrimSpace(row.Values[h]); v != "" {
				out[field] = v
				break
			}
		}
	}
	return out
}

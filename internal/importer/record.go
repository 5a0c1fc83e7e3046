package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"reports-service/internal/models"

	"github.com/xuri/excelize/v2"
)

const minTitleLen = 3

// SegmentFallback decides what fills segmentCompanies when no segmentation column has content
type SegmentFallback string

const (
	SegmentFallbackOverview SegmentFallback = "overview"
	SegmentFallbackNone     SegmentFallback = "none"
)

// ParseSegmentFallback maps a config value onto a policy, defaulting to overview
func ParseSegmentFallback(value string) SegmentFallback {
	if SegmentFallback(strings.ToLower(strings.TrimSpace(value))) == SegmentFallbackNone {
		return SegmentFallbackNone
	}
	return SegmentFallbackOverview
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

var (
	amountRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
	digitsRe = regexp.MustCompile(`[0-9]+`)
)

// ValidateTitle trims title and enforces the minimum length
func ValidateTitle(row int, title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minTitleLen {
		return "", &RowValidationError{
			Row:     row,
			Field:   string(FieldTitle),
			Message: "title is required and must be at least 3 characters",
		}
	}
	return title, nil
}

// BuildRecord assembles a report from resolved fields. Slug and taxonomy links
// are filled in later by the pipeline.
func BuildRecord(row int, f Fields, opts Options) (*models.Report, error) {
	title, err := ValidateTitle(row, f.Get(FieldTitle))
	if err != nil {
		return nil, err
	}

	overview := f.Get(FieldOverview)
	report := &models.Report{
		Title:            title,
		SubTitle:         f.Get(FieldSubTitle),
		ReportCode:       f.Get(FieldReportCode),
		Category:         cleanName(f.Get(FieldCategory)),
		SubCategory:      cleanName(f.Get(FieldSubCategory)),
		Overview:         Format(overview, ContentOverview),
		TableOfContents:  Format(f.Get(FieldTableOfContents), ContentTableOfContents),
		SegmentCompanies: Format(segmentSource(f, opts.SegmentFallback), ContentSegmentation),
		Region:           f.Get(FieldRegion),
		BaseYear:         f.Get(FieldBaseYear),
		ForecastPeriod:   f.Get(FieldForecastPeriod),
		Pages:            parsePages(f.Get(FieldPages)),

		SingleUserPrice:    parseAmount(f.Get(FieldSingleUserPrice)),
		MultiUserPrice:     parseAmount(f.Get(FieldMultiUserPrice)),
		EnterprisePrice:    parseAmount(f.Get(FieldEnterprisePrice)),
		ExcelDataPackPrice: parseAmount(f.Get(FieldDataPackPrice)),

		TitleTag:        f.Get(FieldTitleTag),
		MetaDescription: f.Get(FieldMetaDescription),
		Keywords:        normalizeKeywords(f.Get(FieldKeywords)),

		Status:      models.ParseReportStatus(f.Get(FieldStatus), opts.DefaultStatus),
		Featured:    parseFlag(f.Get(FieldFeatured)),
		Popular:     parseFlag(f.Get(FieldPopular)),
		Author:      f.Get(FieldAuthor),
		PublishDate: parseDate(f.Get(FieldPublishDate), opts.now()),
	}
	return report, nil
}

// segmentSource picks the raw segmentation text: the combined column, then the
// two legacy columns, then the overview when the policy allows it
func segmentSource(f Fields, fallback SegmentFallback) string {
	if combined := f.Get(FieldSegmentCompanies); combined != "" {
		return combined
	}
	var parts []string
	if s := f.Get(FieldSegmentation); s != "" {
		parts = append(parts, s)
	}
	if c := f.Get(FieldCompanies); c != "" {
		parts = append(parts, c)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}
	if fallback == SegmentFallbackOverview {
		return f.Get(FieldOverview)
	}
	return ""
}

func parseAmount(s string) float64 {
	m := amountRe.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func parsePages(s string) int {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "x", "on":
		return true
	}
	return false
}

func normalizeKeywords(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// parseDate accepts common layouts and Excel serial day numbers; anything else yields def
func parseDate(s string, def time.Time) time.Time {
	if t, ok := lookupDate(s); ok {
		return t
	}
	return def
}

// HasPublishDate reports whether the row carries a publish date that parses
func HasPublishDate(f Fields) bool {
	_, ok := lookupDate(f.Get(FieldPublishDate))
	return ok
}

func lookupDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

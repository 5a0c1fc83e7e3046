package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"reports-service/internal/models"

	"github.com/xuri/excelize/v2"
)

// RawRow is one spreadsheet data row keyed by its original column headers
type RawRow struct {
	// Number is the spreadsheet row number; the header is row 1.
	Number int
	Values map[string]string
}

// Sheet is the loaded content of one uploaded file
type Sheet struct {
	Name    string
	Format  models.ImportFormat
	Headers []string
	Rows    []RawRow
}

// preferred worksheet names, checked before falling back to the first sheet
var reportSheetNames = []string{"Reports", "Report", "Data"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromName returns the import format implied by a file name
func FormatFromName(name string) (models.ImportFormat, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return models.ImportFormatCSV, true
	case ".xlsx":
		return models.ImportFormatXLSX, true
	case ".xls":
		return models.ImportFormatXLS, true
	}
	return "", false
}

// LoadFile reads the file at path. name is the client-facing file name and
// decides the format; it defaults to the base name of path.
func LoadFile(path, name string) (*Sheet, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	format, ok := FormatFromName(name)
	if !ok {
		return nil, &FileReadError{File: name, Err: errors.New("unsupported file type (expected .csv, .xlsx or .xls)")}
	}

	var (
		headers []string
		rows    []RawRow
		err     error
	)
	switch format {
	case models.ImportFormatCSV:
		headers, rows, err = loadCSV(path)
	default:
		headers, rows, err = loadWorkbook(path, format)
	}
	if err != nil {
		return nil, &FileReadError{File: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &EmptyFileError{File: name}
	}

	return &Sheet{Name: name, Format: format, Headers: headers, Rows: rows}, nil
}

func loadCSV(path string) ([]string, []RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading CSV: %w", err)
		}
		records = append(records, record)
	}
	return toRows(records)
}

func loadWorkbook(path string, format models.ImportFormat) ([]string, []RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if format == models.ImportFormatXLS {
			return nil, nil, fmt.Errorf("legacy .xls workbooks cannot be read; re-save the file as .xlsx or .csv (%v)", err)
		}
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("no sheets found in Excel file")
	}

	sheetName := pickSheet(sheets)

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return toRows(records)
}

func pickSheet(sheets []string) string {
	for _, preferred := range reportSheetNames {
		for _, name := range sheets {
			if strings.EqualFold(name, preferred) {
				return name
			}
		}
	}
	return sheets[0]
}

// toRows turns raw records into header-keyed rows. Blank rows are dropped but
// keep their place in row numbering.
func toRows(records [][]string) ([]string, []RawRow, error) {
	if len(records) == 0 {
		return nil, nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for idx, record := range records[1:] {
		values := make(map[string]string, len(headers))
		blank := true
		for i, value := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				blank = false
			}
			if existing, ok := values[headers[i]]; ok && existing != "" {
				continue
			}
			values[headers[i]] = value
		}
		if blank {
			continue
		}
		rows = append(rows, RawRow{Number: idx + 2, Values: values})
	}
	return headers, rows, nil
}

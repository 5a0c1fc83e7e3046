package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reports-service/internal/importer"
	"reports-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

// ReportImporter runs imports against the catalog
type ReportImporter interface {
	Run(ctx context.Context, sheet *importer.Sheet, strategy models.DuplicateStrategy) (*models.ImportResult, error)
	CheckDuplicates(ctx context.Context, sheet *importer.Sheet) (*models.DuplicateCheckResult, error)
}

type ImportHandler struct {
	importer  ReportImporter
	uploadDir string
	maxBytes  int64
	log       *logrus.Entry
}

func NewImportHandler(imp ReportImporter, uploadDir string, maxUploadMB int, log *logrus.Entry) *ImportHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &ImportHandler{
		importer:  imp,
		uploadDir: uploadDir,
		maxBytes:  int64(maxUploadMB) << 20,
		log:       log.WithField("component", "import_handler"),
	}
}

// upload is a request file saved to disk. release removes it exactly once.
type upload struct {
	path string
	name string
	once sync.Once
	log  *logrus.Entry
}

func (u *upload) release() {
	u.once.Do(func() {
		if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
			u.log.WithError(err).WithField("path", u.path).Warn("Failed to remove uploaded file")
		}
	})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// receiveUpload validates the multipart "file" field and stores it in the upload
// directory. On false the response has already been written.
func (h *ImportHandler) receiveUpload(c *gin.Context) (*upload, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusBadRequest, "FILE_TOO_LARGE", fmt.Sprintf("Files larger than %d MB are not accepted", h.maxBytes>>20))
			return nil, false
		}
		abortWithError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return nil, false
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		abortWithError(c, http.StatusBadRequest, "FILE_TOO_LARGE", fmt.Sprintf("Files larger than %d MB are not accepted", h.maxBytes>>20))
		return nil, false
	}
	if _, ok := importer.FormatFromName(header.Filename); !ok {
		abortWithError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only .csv, .xlsx and .xls files are supported")
		return nil, false
	}

	dst, err := os.CreateTemp(h.uploadDir, "import-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		h.log.WithError(err).Error("Failed to create upload file")
		abortWithError(c, http.StatusInternalServerError, "IMPORT_FAILED", "Could not store the uploaded file")
		return nil, false
	}
	up := &upload{path: dst.Name(), name: header.Filename, log: h.log}

	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		up.release()
		h.log.WithFields(logrus.Fields{"copy_error": copyErr, "close_error": closeErr}).Error("Failed to write upload file")
		abortWithError(c, http.StatusInternalServerError, "IMPORT_FAILED", "Could not store the uploaded file")
		return nil, false
	}
	return up, true
}

// loadUpload parses a stored upload. On false the response has already been written.
func (h *ImportHandler) loadUpload(c *gin.Context, up *upload) (*importer.Sheet, bool) {
	sheet, err := importer.LoadFile(up.path, up.name)
	if err == nil {
		return sheet, true
	}

	var emptyErr *importer.EmptyFileError
	if errors.As(err, &emptyErr) {
		abortWithError(c, http.StatusBadRequest, "EMPTY_FILE", "The file contains no data rows")
		return nil, false
	}
	h.log.WithError(err).WithField("file", up.name).Warn("Upload could not be parsed")
	abortWithError(c, http.StatusBadRequest, "PARSE_ERROR", err.Error())
	return nil, false
}

// recoverImport turns a panic below the handler into a 500 response
func (h *ImportHandler) recoverImport(c *gin.Context) {
	if rec := recover(); rec != nil {
		err := &importer.UnexpectedPipelineError{Cause: rec}
		h.log.WithError(err).Error("Import handler panicked")
		abortWithError(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
	}
}

// BulkUpload imports reports from an uploaded spreadsheet
// @Summary Bulk import reports
// @Description Imports reports from a CSV or Excel file. duplicateHandling is skip, create or update (default).
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV, XLSX or XLS file"
// @Param duplicateHandling formData string false "skip | create | update"
// @Success 201 {object} models.ImportResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /reports/bulk-upload [post]
func (h *ImportHandler) BulkUpload(c *gin.Context) {
	defer h.recoverImport(c)

	up, ok := h.receiveUpload(c)
	if !ok {
		return
	}
	defer up.release()

	strategy, err := models.ParseDuplicateStrategy(c.PostForm("duplicateHandling"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error())
		return
	}

	sheet, ok := h.loadUpload(c, up)
	if !ok {
		return
	}

	result, err := h.importer.Run(c.Request.Context(), sheet, strategy)
	switch {
	case errors.Is(err, importer.ErrNoValidRows):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": models.Error{
				Code:    "NO_VALID_ROWS",
				Message: "No row has a title of at least 3 characters",
			},
			"data": result,
		})
	case err != nil:
		h.log.WithError(err).WithField("file", up.name).Error("Import failed")
		abortWithError(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
	default:
		c.JSON(http.StatusCreated, result)
	}
}

// CheckDuplicates reports which rows of an uploaded spreadsheet already exist
// @Summary Check an import file for duplicates
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV, XLSX or XLS file"
// @Success 200 {object} models.DuplicateCheckResult
// @Failure 400 {object} models.ErrorResponse
// @Router /reports/check-duplicates [post]
func (h *ImportHandler) CheckDuplicates(c *gin.Context) {
	defer h.recoverImport(c)

	up, ok := h.receiveUpload(c)
	if !ok {
		return
	}
	defer up.release()

	sheet, ok := h.loadUpload(c, up)
	if !ok {
		return
	}

	result, err := h.importer.CheckDuplicates(c.Request.Context(), sheet)
	if err != nil {
		h.log.WithError(err).WithField("file", up.name).Error("Duplicate check failed")
		abortWithError(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReportImportTemplate returns the template definition for report imports
func ReportImportTemplate() models.ImportTemplate {
	columns := make([]models.ImportTemplateColumn, len(importer.FieldSpecs))
	sample := make(map[string]string, len(importer.FieldSpecs))
	for i, spec := range importer.FieldSpecs {
		columns[i] = models.ImportTemplateColumn{
			Name:        spec.Aliases[0],
			Description: spec.Description,
			Required:    spec.Required,
			Type:        spec.Type,
			Example:     spec.Example,
			Aliases:     spec.Aliases[1:],
		}
		sample[spec.Aliases[0]] = spec.Example
	}
	return models.ImportTemplate{
		Entity:     "reports",
		Version:    "1.0",
		Columns:    columns,
		SampleData: []map[string]string{sample},
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/reports/import/template?format=json|csv|xlsx
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := ReportImportTemplate()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.writeCSVTemplate(c, template)
	case "xlsx":
		h.writeXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

func (h *ImportHandler) writeCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=reports_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	rows := [][]string{headers}
	for _, sample := range template.SampleData {
		row := make([]string, len(template.Columns))
		for i, col := range template.Columns {
			row[i] = sample[col.Name]
		}
		rows = append(rows, row)
	}
	if err := writer.WriteAll(rows); err != nil {
		h.log.WithError(err).Warn("Failed to write CSV template")
	}
}

func (h *ImportHandler) writeXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Reports"
	const instructions = "Instructions"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		header := col.Name
		style := headerStyle
		if col.Required {
			header += " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := 20.0
		if col.Type == "text" {
			width = 45
		}
		f.SetColWidth(sheetName, colName, colName, width)
	}

	for rowIdx, sample := range template.SampleData {
		for colIdx, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, sample[col.Name])
			f.SetCellStyle(sheetName, cell, cell, wrapStyle)
		}
	}

	f.NewSheet(instructions)
	f.SetCellValue(instructions, "A1", "Report Import Instructions")
	f.SetCellValue(instructions, "A2", "Columns marked * are required. Headers may use any of the listed alternative names.")
	f.SetSheetRow(instructions, "A3", &[]interface{}{"Column", "Description", "Required", "Type", "Example", "Also accepted"})
	for i, col := range template.Columns {
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		cell := fmt.Sprintf("A%d", i+4)
		f.SetSheetRow(instructions, cell, &[]interface{}{
			col.Name, col.Description, required, col.Type, col.Example, strings.Join(col.Aliases, ", "),
		})
	}
	f.SetColWidth(instructions, "A", "A", 25)
	f.SetColWidth(instructions, "B", "B", 55)
	f.SetColWidth(instructions, "C", "D", 12)
	f.SetColWidth(instructions, "E", "F", 45)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=reports_import_template.xlsx")
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Warn("Failed to write XLSX template")
	}
}

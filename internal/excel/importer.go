// Package excel imports lesson catalogs from spreadsheets.
package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/hablabot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// LessonStore receives imported lessons; Upsert reports whether a row was created
type LessonStore interface {
	Upsert(ctx context.Context, lesson *models.Lesson) (bool, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string // Path to the Excel or CSV file
	LevelColumn       string
	OrderColumn       string
	TitleColumn       string
	DescriptionColumn string
	ScenarioColumn    string
	VocabularyColumn  string // "es=en;es=en"
	SheetName         string // Empty means the first sheet
	StartRow          int    // 1-based
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		LevelColumn:       "A",
		OrderColumn:       "B",
		TitleColumn:       "C",
		DescriptionColumn: "D",
		ScenarioColumn:    "E",
		VocabularyColumn:  "F",
		StartRow:          2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportLessons imports lessons from an Excel or CSV file
func ImportLessons(ctx context.Context, store LessonStore, config ImportConfig) (*ImportResult, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		file, err := os.Open(config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		return ImportCSV(ctx, store, file, config)
	}

	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()
	return ImportWorkbook(ctx, store, file, config)
}

// ImportWorkbook imports lessons from .xlsx data
func ImportWorkbook(ctx context.Context, store LessonStore, r io.Reader, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel workbook: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return importRows(ctx, store, config, rows)
}

// ImportCSV imports lessons from CSV data
func ImportCSV(ctx context.Context, store LessonStore, r io.Reader, config ImportConfig) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return importRows(ctx, store, config, rows)
}

func importRows(ctx context.Context, store LessonStore, config ImportConfig, rows [][]string) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if isBlank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		lesson, err := parseRow(row, config)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		created, err := store.Upsert(ctx, lesson)
		if err != nil {
			return result, fmt.Errorf("row %d: failed to save lesson: %w", rowNum, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func parseRow(row []string, config ImportConfig) (*models.Lesson, error) {
	level, err := models.ParseLevel(cell(row, config.LevelColumn))
	if err != nil {
		return nil, err
	}
	order, err := strconv.Atoi(cell(row, config.OrderColumn))
	if err != nil || order < 1 {
		return nil, fmt.Errorf("order must be a positive number, got %q", cell(row, config.OrderColumn))
	}
	title := cell(row, config.TitleColumn)
	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}
	words, err := ParseVocabulary(cell(row, config.VocabularyColumn))
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(models.LessonContent{Vocabulary: words})
	if err != nil {
		return nil, err
	}
	return &models.Lesson{
		Level:       level,
		OrderIndex:  order,
		Title:       title,
		Description: cell(row, config.DescriptionColumn),
		Scenario:    cell(row, config.ScenarioColumn),
		Content:     string(content),
	}, nil
}

// ParseVocabulary parses "hola=hello; por favor=please"
func ParseVocabulary(s string) ([]models.VocabularyWord, error) {
	words := []models.VocabularyWord{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		es, en, ok := strings.Cut(pair, "=")
		es, en = strings.TrimSpace(es), strings.TrimSpace(en)
		if !ok || es == "" || en == "" {
			return nil, fmt.Errorf("bad vocabulary entry %q, want spanish=english", pair)
		}
		words = append(words, models.VocabularyWord{Spanish: es, English: en})
	}
	return words, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx > len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx-1])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

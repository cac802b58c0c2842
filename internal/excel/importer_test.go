package excel

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/hablabot/internal/catalog"
	"github.com/example/hablabot/internal/database"
	"github.com/example/hablabot/pkg/models"
	"github.com/xuri/excelize/v2"
)

func TestImportLessonsFromExcel(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo := database.NewLessonRepository(db)

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"level", "order", "title", "description", "scenario", "vocabulary"},
		{"A1", 1, "En el mercado", "Buying fruit", "shopping", "manzana=apple; pera=pear"},
		{"b1", 2, "En el médico", "", "health", ""},
		{},
		{"Z1", 1, "Bad level", "", "", ""},
		{"A2", "x", "Bad order", "", "", ""},
		{"A2", 3, "Bad words", "", "", "solo"},
	}
	for i, r := range rows {
		ref, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", ref, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "lessons.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	res, err := ImportLessons(context.Background(), repo, cfg)
	if err != nil {
		t.Fatalf("ImportLessons: %v", err)
	}
	if res.Created != 2 || res.Updated != 0 {
		t.Errorf("created %d updated %d, want 2/0", res.Created, res.Updated)
	}
	if res.TotalProcessed != 5 || res.Skipped != 1 {
		t.Errorf("processed %d skipped %d, want 5/1", res.TotalProcessed, res.Skipped)
	}
	if len(res.Errors) != 3 {
		t.Errorf("errors = %v, want 3", res.Errors)
	}

	all, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[1].Level != models.LevelB1 {
		t.Fatalf("lessons = %+v", all)
	}
	content, err := catalog.DecodeContent(&all[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(content.Vocabulary) != 2 || content.Vocabulary[1].English != "pear" {
		t.Errorf("vocabulary = %+v", content.Vocabulary)
	}

	// importing again only updates
	res, err = ImportLessons(context.Background(), repo, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Updated != 2 {
		t.Errorf("re-import created %d updated %d, want 0/2", res.Created, res.Updated)
	}
}

func TestImportWorkbookFromReader(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo := database.NewLessonRepository(db)

	f := excelize.NewFile()
	if _, err := f.NewSheet("Lecciones"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	row := []interface{}{"A2", 1, "En la farmacia", "", "health", "jarabe=syrup"}
	if err := f.SetSheetRow("Lecciones", "A2", &row); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	cfg := DefaultImportConfig()
	cfg.SheetName = "Lecciones"
	res, err := ImportWorkbook(context.Background(), repo, buf, cfg)
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if res.Created != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}

	if _, err := ImportWorkbook(context.Background(), repo, strings.NewReader("not a workbook"), cfg); err == nil {
		t.Error("expected error for non-xlsx data")
	}
}

func TestImportCSV(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo := database.NewLessonRepository(db)

	data := strings.Join([]string{
		"level,order,title,description,scenario,vocabulary",
		`A1,1,Saludos,"Hola, ¿qué tal?",meeting_people,hola=hello`,
		"C2,1,Debate,,opinion,",
	}, "\n")
	res, err := ImportCSV(context.Background(), repo, strings.NewReader(data), DefaultImportConfig())
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Created != 2 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}
	all, _ := repo.ListAll(context.Background())
	if all[0].Description != "Hola, ¿qué tal?" {
		t.Errorf("description = %q", all[0].Description)
	}
}

func TestParseVocabulary(t *testing.T) {
	words, err := ParseVocabulary(" hola = hello ;; gracias=thank you ")
	if err != nil {
		t.Fatalf("ParseVocabulary: %v", err)
	}
	if len(words) != 2 || words[0].Spanish != "hola" || words[1].English != "thank you" {
		t.Errorf("words = %+v", words)
	}
	if _, err := ParseVocabulary("hola"); err == nil {
		t.Error("expected error for entry without '='")
	}
	if words, _ := ParseVocabulary(""); len(words) != 0 {
		t.Errorf("empty input = %v", words)
	}
}

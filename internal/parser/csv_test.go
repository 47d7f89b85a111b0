package parser_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/KaramelBytes/sitelens-cli/internal/parser"
)

func TestParseFileCSV_Profile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "site_progress.csv")
	content := "Project_ID,Planned_Days,Actual_Days,Start_Date\n" +
		"P1,120,131,2024-01-08\n" +
		"P2,90,84,2024-02-12\n" +
		"P3,200,215,2024-03-04\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := parser.ParseFile(p, parser.Options{Table: analysis.DefaultOptions()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Len())
	}
	out := tbl.Profile(analysis.DefaultOptions()).Markdown()
	if !strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("expected dataset summary header, got: %q", out)
	}
	if !strings.Contains(out, "Planned_Days: numeric") {
		t.Fatalf("expected numeric inference for Planned_Days, got: %q", out)
	}
	if !strings.Contains(out, "Start_Date: datetime") {
		t.Fatalf("expected datetime inference for Start_Date, got: %q", out)
	}
}

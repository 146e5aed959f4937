package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeTestCSV(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTestCSV(t, "section_a.csv",
		"Student ID,Name,Surname,Email,Remarks\n"+
			"1,Ada,Lovelace,,founder\n"+
			"2,Grace,Hopper,grace@navy.mil,\n")

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lists := r.Lists()
	if len(lists) != 1 || lists[0] != "section_a" {
		t.Fatalf("Lists = %v, want [section_a]", lists)
	}

	regs := r.Registrations("section_a")
	if len(regs) != 2 {
		t.Fatalf("expected 2 registrations, got %d", len(regs))
	}
	if regs[0].Student.ID != "1" || regs[1].Student.ID != "2" {
		t.Errorf("registration order: %s, %s", regs[0].Student.ID, regs[1].Student.ID)
	}
	if regs[0].Student.Remarks != "founder" {
		t.Errorf("Remarks = %q", regs[0].Student.Remarks)
	}
}

func TestGetStudentCleansDisplayName(t *testing.T) {
	path := writeTestCSV(t, "class.csv",
		"Student ID,Name,Surname,Email,Remarks\n1,Ada,Lovelace,,\n")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Poll exports embed a numeric tag and stray whitespace in the name.
	s := r.GetStudent("Ada 12345  Lovelace")
	if s == nil {
		t.Fatal("expected student for tagged display name")
	}
	if s.ID != "1" {
		t.Errorf("ID = %q, want 1", s.ID)
	}

	if r.GetStudent("Charles Babbage") != nil {
		t.Error("expected nil for unknown name")
	}
}

func TestLoadWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "students.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), "Section A"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := f.NewSheet("Section B"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	header := []any{"Student ID", "Name", "Surname", "Email", "Remarks"}
	for _, sheet := range []string{"Section A", "Section B"} {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			t.Fatalf("header %s: %v", sheet, err)
		}
	}
	rowA := []any{"1", "Ada", "Lovelace", "", "founder"}
	rowB := []any{"1", "Ada", "Lovelace", "", "founder"}
	rowB2 := []any{"2", "Grace", "Hopper", "", ""}
	if err := f.SetSheetRow("Section A", "A2", &rowA); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := f.SetSheetRow("Section B", "A2", &rowB); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := f.SetSheetRow("Section B", "A3", &rowB2); err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lists := r.Lists()
	if len(lists) != 2 {
		t.Fatalf("Lists = %v, want 2 sheets", lists)
	}

	// A student registered in two lists is one identity.
	a := r.Registrations("Section A")
	b := r.Registrations("Section B")
	if len(a) != 1 || len(b) != 2 {
		t.Fatalf("registrations: Section A %d, Section B %d", len(a), len(b))
	}
	if a[0].Student != b[0].Student {
		t.Error("same student id in two lists should share one Student")
	}
}

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"Ada 12345 Lovelace": "Ada Lovelace",
		"  Grace   Hopper ":  "Grace Hopper",
		"3211 ":              "",
	}
	for in, want := range cases {
		if got := CleanName(in); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

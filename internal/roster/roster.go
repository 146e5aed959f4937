// Package roster loads student registration lists and resolves the display
// names found in poll exports to known students.
package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/pollscan/internal/model"
)

// Roster is the set of registered students, organized into registration
// lists. Students registered in several lists share one identity.
type Roster struct {
	byName        map[string]*model.Student
	byID          map[string]*model.Student
	lists         []string
	registrations map[string][]model.Registration
}

// Load reads roster files into one roster. An .xlsx workbook contributes one
// registration list per sheet; a .csv file contributes a single list named
// after the file stem. Every list starts with a header row
// (Student ID, Name, Surname, Email, Remarks) which is skipped.
func Load(paths ...string) (*Roster, error) {
	r := &Roster{
		byName:        make(map[string]*model.Student),
		byID:          make(map[string]*model.Student),
		registrations: make(map[string][]model.Registration),
	}
	for _, path := range paths {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			err = r.loadWorkbook(path)
		case ".csv":
			err = r.loadCSV(path)
		default:
			err = fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("load roster %s: %w", path, err)
		}
	}
	return r, nil
}

func (r *Roster) loadWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if err := r.loadRows(sheet, rows); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func (r *Roster) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	list := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.loadRows(list, rows)
}

func (r *Roster) loadRows(list string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	for i, row := range rows[1:] { // first row is the header
		for len(row) < 5 {
			row = append(row, "")
		}
		id := strings.TrimSpace(row[0])
		if id == "" {
			continue // padding row
		}
		student := r.byID[id]
		if student == nil {
			student = &model.Student{
				ID:      id,
				Name:    model.NormalizeText(row[1]),
				Surname: model.NormalizeText(row[2]),
				Email:   strings.TrimSpace(row[3]),
				Remarks: strings.TrimSpace(row[4]),
			}
			r.byID[id] = student
			key := CleanName(student.Name + " " + student.Surname)
			if key == "" {
				return fmt.Errorf("row %d: student %s has no name", i+2, id)
			}
			r.byName[key] = student
		}
		if _, ok := r.registrations[list]; !ok {
			r.lists = append(r.lists, list)
		}
		r.registrations[list] = append(r.registrations[list], model.Registration{List: list, Student: student})
	}
	return nil
}

// GetStudent resolves a display name to a student, or nil when the name is
// unknown. The name is cleaned the same way the ingest tokenizer cleans the
// name cell, so roster lookups and row parsing agree on identity.
func (r *Roster) GetStudent(displayName string) *model.Student {
	return r.byName[CleanName(displayName)]
}

// Lists returns the registration list names in load order.
func (r *Roster) Lists() []string {
	return r.lists
}

// Registrations returns one list's registrations in roster order.
func (r *Roster) Registrations(list string) []model.Registration {
	return r.registrations[list]
}

// CleanName strips digits from a display name and collapses whitespace.
// Poll exports embed a numeric tag inside the name cell.
func CleanName(s string) string {
	var b strings.Builder
	for _, c := range s {
		if !unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return model.NormalizeText(b.String())
}

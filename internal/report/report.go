// Package report turns the persisted attendance ledger and the roster into
// the attendance report spreadsheet.
package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/pollscan/internal/ledger"
	"github.com/pavelanni/pollscan/internal/roster"
)

// ErrEmptyLedger is returned when no poll dates have been recorded yet, so
// attendance rates would divide by zero.
var ErrEmptyLedger = errors.New("attendance ledger is empty")

// Row is one line of the attendance report: one student within one
// registration list. Total is the global ledger date count, the same for
// every student.
type Row struct {
	StudentID string
	Name      string
	Surname   string
	Remarks   string
	Total     int
	Attended  int
}

// Rate formats attendance as "<attended>/<total>".
func (r Row) Rate() string {
	return fmt.Sprintf("%d/%d", r.Attended, r.Total)
}

// Percent formats attendance as a percentage rounded to two decimals, with
// at least one decimal shown ("100.0%", "66.67%").
func (r Row) Percent() string {
	pct := math.Round(float64(r.Attended)*100.0/float64(r.Total)*100) / 100
	s := strconv.FormatFloat(pct, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// Build computes one report row per (student, registration list) pair, in
// roster order. Students with no submissions still get a row.
func Build(led ledger.Ledger, ros *roster.Roster) ([]Row, error) {
	if len(led) == 0 {
		return nil, ErrEmptyLedger
	}
	total := len(led)

	var rows []Row
	for _, list := range ros.Lists() {
		for _, reg := range ros.Registrations(list) {
			attended := 0
			for date := range led {
				for _, id := range led[date] {
					if id == reg.Student.ID {
						attended++
						break
					}
				}
			}
			rows = append(rows, Row{
				StudentID: reg.Student.ID,
				Name:      reg.Student.Name,
				Surname:   reg.Student.Surname,
				Remarks:   reg.Student.Remarks,
				Total:     total,
				Attended:  attended,
			})
		}
	}
	return rows, nil
}

var header = []any{
	"Student ID", "Name", "Surname", "Remarks",
	"total attendance", "attendance rate", "attendance %",
}

// WriteXLSX writes the report as a spreadsheet, creating the parent
// directory if needed.
func WriteXLSX(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.StudentID, r.Name, r.Surname, r.Remarks, r.Total, r.Rate(), r.Percent()}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

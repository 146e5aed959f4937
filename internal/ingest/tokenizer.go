package ingest

import (
	"fmt"
	"strings"

	"github.com/pavelanni/pollscan/internal/model"
	"github.com/pavelanni/pollscan/internal/roster"
)

// protectedAnswers lists raw answer texts that must never be split on ';'
// even though they contain one. Kept for compatibility with historical
// export data.
var protectedAnswers = map[string]bool{
	"a time-boxed iteration in which 4 usual software activity; analysis, design, coding, and testing is performed": true,
}

// Row is one tokenized submission row.
type Row struct {
	StudentName string
	Email       string
	Timestamp   string

	// Questions holds the distinct normalized question texts in first-seen
	// order. Answers holds one alternatives list per question occurrence in
	// original order, so the two may differ in length when a row repeats a
	// question.
	Questions []string
	Answers   [][]string
}

// TokenizeRow splits one raw export row into its submission parts. The cell
// layout is: row noise, student name (with an embedded numeric tag), email,
// timestamp, then alternating question/answer cells. The walk stops at the
// first blank cell, which models the ragged fixed-width export frame.
func TokenizeRow(cells []string) (*Row, error) {
	if len(cells) < 4 {
		return nil, fmt.Errorf("%w: %d fields, want at least 4", ErrMalformedRow, len(cells))
	}
	row := &Row{
		StudentName: roster.CleanName(cells[1]),
		Email:       strings.TrimSpace(cells[2]),
		Timestamp:   strings.TrimSpace(cells[3]),
	}

	var question string
	seen := make(map[string]bool)
	for i, cell := range cells[4:] {
		if strings.TrimSpace(cell) == "" {
			break
		}
		if i%2 == 0 {
			question = model.NormalizeText(cell)
			continue
		}
		alternatives := []string{cell}
		if !protectedAnswers[cell] {
			alternatives = strings.Split(cell, ";")
		}
		if !seen[question] {
			seen[question] = true
			row.Questions = append(row.Questions, question)
		}
		row.Answers = append(row.Answers, alternatives)
	}
	return row, nil
}

// Package ledger persists the durable state of the pipeline: the attendance
// ledger (merged across runs) and the anomaly log (rewritten every run).
// Both are flat JSON documents with sorted keys and 4-space indentation so
// identical input reproduces identical bytes.
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pavelanni/pollscan/internal/model"
)

// Ledger maps ISO calendar dates to the IDs of students present that date.
// A student appears at most once per date regardless of how many
// submissions they made that day.
type Ledger map[string][]string

// Load reads an existing ledger file, or returns an empty ledger when the
// file does not exist yet. Student IDs written as JSON numbers by earlier
// tooling are accepted and carried as strings.
func Load(path string) (Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var raw map[string][]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}

	led := make(Ledger, len(raw))
	for date, ids := range raw {
		led[date] = []string{}
		for _, id := range ids {
			switch v := id.(type) {
			case string:
				led[date] = append(led[date], v)
			case json.Number:
				led[date] = append(led[date], v.String())
			default:
				return nil, fmt.Errorf("parse ledger %s: non-scalar student id under %s", path, date)
			}
		}
	}
	return led, nil
}

// Mark records a student as present on a date. The insert is idempotent:
// marking an already-present student is a no-op. Reports whether the ledger
// changed.
func (l Ledger) Mark(date, studentID string) bool {
	for _, id := range l[date] {
		if id == studentID {
			return false
		}
	}
	l[date] = append(l[date], studentID)
	return true
}

// MergePolls folds every submission of every aggregate into the ledger.
// Aggregates are visited in sorted key order so identical input yields
// identical ledger bytes across runs.
func (l Ledger) MergePolls(polls map[string]*model.Poll) {
	keys := make([]string, 0, len(polls))
	for key := range polls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		poll := polls[key]
		for _, sub := range poll.Submissions {
			l.Mark(poll.Date, sub.Student.ID)
		}
	}
}

// Save writes the ledger, creating the parent directory if needed.
func (l Ledger) Save(path string) error {
	return writeJSON(path, l, "ledger")
}

// Anomalies maps "<poll name> <date>" to the (email, name) pairs of
// submitters that could not be matched to a roster student. The file is an
// operator worklist, fully rewritten on every run.
type Anomalies map[string][][2]string

// NewAnomalies returns an empty anomaly log.
func NewAnomalies() Anomalies {
	return Anomalies{}
}

// Add appends one unresolved (email, name) pair under a poll-instance key.
func (a Anomalies) Add(key, email, name string) {
	a[key] = append(a[key], [2]string{email, name})
}

// Save writes the anomaly log, creating the parent directory if needed.
func (a Anomalies) Save(path string) error {
	return writeJSON(path, a, "anomalies")
}

func writeJSON(path string, v any, what string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", what, err)
		}
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

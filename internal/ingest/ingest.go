// Package ingest drives the poll-report pipeline: it tokenizes export rows,
// matches them to known polls, resolves students against the roster, and
// accumulates poll aggregates and reconciliation anomalies.
package ingest

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pavelanni/pollscan/internal/answerkey"
	"github.com/pavelanni/pollscan/internal/ledger"
	"github.com/pavelanni/pollscan/internal/model"
	"github.com/pavelanni/pollscan/internal/roster"
)

// AttendancePollName is the poll whose submissions imply presence only.
// Every other poll is a quiz poll.
const AttendancePollName = "attendance poll"

// timestampLayout is the submission datetime format used by the export,
// e.g. "Sep 03, 2021 14:05:22".
const timestampLayout = "Jan 02, 2006 15:04:05"

const (
	// headerRows is the number of leading noise rows in every export file.
	headerRows = 6
	// maxColumns is the fixed width of the export frame.
	maxColumns = 25
)

// Ingestor accumulates state across poll-report files: one poll aggregate
// per (poll name, date) pair and the anomaly log for unresolved students.
// It is single-writer; call it from one goroutine.
type Ingestor struct {
	keys   *answerkey.Directory
	roster *roster.Roster
	log    *slog.Logger

	polls     map[string]*model.Poll
	anomalies ledger.Anomalies
}

// New returns an ingestor over the given answer-key directory and roster.
func New(keys *answerkey.Directory, ros *roster.Roster, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		keys:      keys,
		roster:    ros,
		log:       log,
		polls:     make(map[string]*model.Poll),
		anomalies: ledger.NewAnomalies(),
	}
}

// Polls returns the aggregates built so far, keyed by "<poll name> <date>".
func (in *Ingestor) Polls() map[string]*model.Poll {
	return in.polls
}

// Anomalies returns the unresolved-student log built so far.
func (in *Ingestor) Anomalies() ledger.Anomalies {
	return in.anomalies
}

// IngestFiles parses each poll-report file in order. A file that cannot be
// read is logged and skipped; it never aborts the batch.
func (in *Ingestor) IngestFiles(paths []string) {
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := in.ingestFile(path); err != nil {
			in.log.Error("poll report is not valid", "report", name, "error", err)
			continue
		}
		in.log.Info("poll report parsed", "report", name)
	}
}

func (in *Ingestor) ingestFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	for i, rec := range records {
		if i < headerRows {
			continue
		}
		if len(rec) > maxColumns {
			rec = rec[:maxColumns]
		}
		if err := in.processRow(rec); err != nil {
			in.log.Warn("row skipped", "report", filepath.Base(path), "row", i+1, "error", err)
		}
	}
	return nil
}

// processRow handles one data row end to end. An unresolved student is not
// an error: it is recorded as an anomaly and the row is done.
func (in *Ingestor) processRow(cells []string) error {
	row, err := TokenizeRow(cells)
	if err != nil {
		return err
	}

	pollName, err := in.keys.Match(row.Questions)
	if err != nil {
		return err
	}

	student := in.roster.GetStudent(row.StudentName)
	if student == nil {
		in.recordAnomaly(pollName, row)
		return nil
	}
	// Roster files often lack the email; the export always has it.
	student.Email = row.Email

	return in.buildSubmission(pollName, row, student)
}

// recordAnomaly keys the entry by poll name plus the date portion of the raw
// timestamp (everything before the time-of-day token).
func (in *Ingestor) recordAnomaly(pollName string, row *Row) {
	fields := strings.Fields(row.Timestamp)
	if len(fields) > 1 {
		fields = fields[:len(fields)-1]
	}
	key := pollName + " " + strings.Join(fields, " ")
	in.anomalies.Add(key, row.Email, row.StudentName)
	in.log.Warn("student not in roster", "student", row.StudentName, "poll", pollName)
}

// buildSubmission turns a matched row into a PollSubmission and threads it
// into the poll aggregate and the student's history. A repeated submission
// by the same student for the same (poll, date) replaces the earlier one.
func (in *Ingestor) buildSubmission(pollName string, row *Row, student *model.Student) error {
	at, err := time.Parse(timestampLayout, row.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrTimestampParse, row.Timestamp)
	}
	date := at.Format("2006-01-02")
	key := pollName + " " + date

	questions, err := in.keys.Questions(pollName, row.Questions)
	if err != nil {
		return err
	}
	answers, err := in.keys.Answers(pollName, questions, row.Answers)
	if err != nil {
		return err
	}

	poll := in.polls[key]
	if poll == nil {
		kind := model.KindQuiz
		if pollName == AttendancePollName {
			kind = model.KindAttendance
		}
		poll = model.NewPoll(kind, key, date, at.Weekday().String())
		in.polls[key] = poll
	}

	sub := model.NewPollSubmission(at, poll, student)
	sub.AddQuestionsAnswers(questions, answers)

	poll.Time = at.Format("15 04 05")
	poll.AddSubmission(sub)
	poll.AddQuestions(questions)
	student.AddSubmission(key, sub)
	return nil
}

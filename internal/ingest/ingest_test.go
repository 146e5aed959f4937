package ingest

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pavelanni/pollscan/internal/answerkey"
	"github.com/pavelanni/pollscan/internal/ledger"
	"github.com/pavelanni/pollscan/internal/model"
	"github.com/pavelanni/pollscan/internal/roster"
)

func newTestKeys(t *testing.T) *answerkey.Directory {
	t.Helper()
	d := answerkey.NewDirectory()
	d.Add(AttendancePollName, model.NewQuestion("Are you present"),
		[]model.Answer{model.NewAnswer([]string{"yes"})})
	d.Add("Poll 1 Basics", model.NewQuestion("What is a variable"),
		[]model.Answer{model.NewAnswer([]string{"a named value"})})
	return d
}

func newTestRoster(t *testing.T) *roster.Roster {
	t.Helper()
	path := filepath.Join(t.TempDir(), "students.csv")
	data := "Student ID,Name,Surname,Email,Remarks\n" +
		"1,Ada,Lovelace,,\n" +
		"2,Grace,Hopper,,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	r, err := roster.Load(path)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	return r
}

func newTestIngestor(t *testing.T) *Ingestor {
	t.Helper()
	return New(newTestKeys(t), newTestRoster(t), nil)
}

// writeReport writes a poll-report CSV with the export's six noise rows.
func writeReport(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	w := csv.NewWriter(f)
	for i := 0; i < headerRows; i++ {
		if err := w.Write([]string{"export noise"}); err != nil {
			t.Fatalf("write noise row: %v", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			t.Fatalf("write data row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush report: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close report: %v", err)
	}
	return path
}

func attendanceRow(name, email, timestamp string) []string {
	return []string{"0", name, email, timestamp, "Are you present", "yes"}
}

func TestIngestAttendanceRow(t *testing.T) {
	in := newTestIngestor(t)
	path := writeReport(t, "report.csv", [][]string{
		attendanceRow("Ada 12345 Lovelace", "ada@example.edu", "Sep 03, 2021 14:05:22"),
	})

	in.IngestFiles([]string{path})

	polls := in.Polls()
	poll := polls["attendance poll 2021-09-03"]
	if poll == nil {
		t.Fatalf("missing aggregate, have %v", keysOf(polls))
	}
	if poll.Kind != model.KindAttendance {
		t.Errorf("Kind = %q, want attendance", poll.Kind)
	}
	if poll.Date != "2021-09-03" || poll.Weekday != "Friday" {
		t.Errorf("Date/Weekday = %q/%q", poll.Date, poll.Weekday)
	}
	if poll.Time != "14 05 22" {
		t.Errorf("Time = %q", poll.Time)
	}
	if len(poll.Submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(poll.Submissions))
	}

	sub := poll.Submissions[0]
	if sub.Student.ID != "1" {
		t.Errorf("student = %s", sub.Student.ID)
	}
	if sub.Student.Email != "ada@example.edu" {
		t.Errorf("email not backfilled: %q", sub.Student.Email)
	}
	if len(sub.QuestionsAnswers) != 1 || sub.QuestionsAnswers[0].Question.Text != "Are you present" {
		t.Errorf("QuestionsAnswers = %v", sub.QuestionsAnswers)
	}
	if sub.Student.Submissions["attendance poll 2021-09-03"] != sub {
		t.Error("submission missing from student history")
	}
}

func TestDuplicateSubmissionLastWriteWins(t *testing.T) {
	in := newTestIngestor(t)
	path := writeReport(t, "report.csv", [][]string{
		attendanceRow("Ada Lovelace", "ada@example.edu", "Sep 03, 2021 14:00:00"),
		attendanceRow("Ada Lovelace", "ada@example.edu", "Sep 03, 2021 14:05:22"),
	})

	in.IngestFiles([]string{path})

	poll := in.Polls()["attendance poll 2021-09-03"]
	if poll == nil {
		t.Fatal("missing aggregate")
	}
	if len(poll.Submissions) != 1 {
		t.Fatalf("expected the duplicate to be replaced, got %d submissions", len(poll.Submissions))
	}
	if got := poll.Submissions[0].At.Format("15:04:05"); got != "14:05:22" {
		t.Errorf("kept submission at %s, want the later one", got)
	}

	led := ledger.Ledger{}
	led.MergePolls(in.Polls())
	if !reflect.DeepEqual(led["2021-09-03"], []string{"1"}) {
		t.Errorf("ledger entry = %v, want exactly one id", led["2021-09-03"])
	}
}

func TestUnrecognizedPollSkipsRowOnly(t *testing.T) {
	in := newTestIngestor(t)
	path := writeReport(t, "report.csv", [][]string{
		attendanceRow("Ada Lovelace", "ada@example.edu", "Sep 03, 2021 14:00:00"),
		{"0", "Grace Hopper", "grace@example.edu", "Sep 03, 2021 14:01:00", "Unknown question", "answer"},
		{"0", "Grace Hopper", "grace@example.edu", "Sep 03, 2021 14:02:00", "What is a variable", "a named value"},
	})

	in.IngestFiles([]string{path})

	attendance := in.Polls()["attendance poll 2021-09-03"]
	quiz := in.Polls()["Poll 1 Basics 2021-09-03"]
	if attendance == nil || quiz == nil {
		t.Fatalf("rows around the bad one were lost, have %v", keysOf(in.Polls()))
	}
	if quiz.Kind != model.KindQuiz {
		t.Errorf("Kind = %q, want quiz", quiz.Kind)
	}
	if got := len(attendance.Submissions) + len(quiz.Submissions); got != 2 {
		t.Errorf("expected exactly the bad row skipped, got %d submissions", got)
	}
}

func TestUnresolvedStudentBecomesAnomaly(t *testing.T) {
	in := newTestIngestor(t)
	path := writeReport(t, "report.csv", [][]string{
		attendanceRow("Charles Babbage", "charles@example.edu", "Sep 03, 2021 14:00:00"),
	})

	in.IngestFiles([]string{path})

	if len(in.Polls()) != 0 {
		t.Errorf("anomalous row must not create a poll, have %v", keysOf(in.Polls()))
	}

	anomalies := in.Anomalies()
	got, ok := anomalies["attendance poll Sep 03, 2021"]
	if !ok {
		t.Fatalf("missing anomaly key, have %v", anomalies)
	}
	want := [][2]string{{"charles@example.edu", "Charles Babbage"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("anomaly = %v, want %v", got, want)
	}

	led := ledger.Ledger{}
	led.MergePolls(in.Polls())
	if len(led) != 0 {
		t.Errorf("anomalous row must not touch the ledger: %v", led)
	}
}

func TestBadTimestampSkipsRow(t *testing.T) {
	in := newTestIngestor(t)

	err := in.processRow([]string{"0", "Ada Lovelace", "a@b", "2021-09-03 14:00", "Are you present", "yes"})
	if !errors.Is(err, ErrTimestampParse) {
		t.Fatalf("expected ErrTimestampParse, got %v", err)
	}
	if len(in.Polls()) != 0 {
		t.Error("failed row must not create a poll")
	}
}

func TestMalformedRowReported(t *testing.T) {
	in := newTestIngestor(t)

	err := in.processRow([]string{"0", "Ada Lovelace"})
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected ErrMalformedRow, got %v", err)
	}
}

func TestIngestSurvivesUnreadableFile(t *testing.T) {
	in := newTestIngestor(t)
	good := writeReport(t, "good.csv", [][]string{
		attendanceRow("Ada Lovelace", "ada@example.edu", "Sep 03, 2021 14:00:00"),
	})

	in.IngestFiles([]string{filepath.Join(t.TempDir(), "missing.csv"), good})

	if len(in.Polls()) != 1 {
		t.Fatalf("expected the good file to be ingested, have %v", keysOf(in.Polls()))
	}
}

func keysOf(polls map[string]*model.Poll) []string {
	var keys []string
	for k := range polls {
		keys = append(keys, k)
	}
	return keys
}

package model

import (
	"strings"
	"time"
)

// PollKind distinguishes attendance polls from scored quiz polls.
// The kind is fixed when the aggregate is created and never changes.
type PollKind string

const (
	// KindAttendance marks polls whose submissions only imply presence.
	KindAttendance PollKind = "attendance"
	// KindQuiz marks polls whose submissions carry answers for scoring.
	KindQuiz PollKind = "quiz"
)

// NormalizeText collapses internal whitespace runs to single spaces and
// trims the ends. Question identity is defined over this form.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Question is an immutable prompt identified by its normalized text.
// Two questions are the same question iff their texts are equal.
type Question struct {
	Text string
}

// NewQuestion builds a Question from raw prompt text.
func NewQuestion(raw string) Question {
	return Question{Text: NormalizeText(raw)}
}

// Words returns the question's token sequence.
func (q Question) Words() []string {
	return strings.Fields(q.Text)
}

// Answer is one accepted response, or an ordered set of acceptable
// alternatives. Immutable after construction.
type Answer struct {
	Alternatives []string
}

// NewAnswer builds an Answer from a list of acceptable alternative texts.
func NewAnswer(alternatives []string) Answer {
	alts := make([]string, len(alternatives))
	copy(alts, alternatives)
	return Answer{Alternatives: alts}
}

// QuestionAnswer pairs a question with the answer given (or accepted) for it.
type QuestionAnswer struct {
	Question Question
	Answer   Answer
}

// Poll aggregates every submission for one (poll name, calendar date) pair.
// Key is "<poll name> <YYYY-MM-DD>"; one aggregate exists per key for the
// lifetime of a run.
type Poll struct {
	Kind    PollKind
	Key     string
	Date    string // ISO calendar date
	Weekday string
	Time    string // time of day of the latest submission, "HH MM SS"

	Submissions []*PollSubmission
	Questions   []Question // distinct questions seen, first-seen order
}

// NewPoll creates an empty aggregate of the given kind.
func NewPoll(kind PollKind, key, date, weekday string) *Poll {
	return &Poll{Kind: kind, Key: key, Date: date, Weekday: weekday}
}

// AddSubmission records a submission on the aggregate. A later submission by
// the same student for the same aggregate replaces the earlier one
// (last-write-wins), so a student appears at most once per poll instance.
func (p *Poll) AddSubmission(sub *PollSubmission) {
	for i, existing := range p.Submissions {
		if existing.Student == sub.Student {
			p.Submissions[i] = sub
			return
		}
	}
	p.Submissions = append(p.Submissions, sub)
}

// AddQuestions merges questions into the aggregate's distinct-question list,
// preserving first-seen order.
func (p *Poll) AddQuestions(questions []Question) {
	for _, q := range questions {
		seen := false
		for _, have := range p.Questions {
			if have.Text == q.Text {
				seen = true
				break
			}
		}
		if !seen {
			p.Questions = append(p.Questions, q)
		}
	}
}

// PollSubmission is one student's single submission to one poll instance.
// The poll and student references are back-references, not ownership.
type PollSubmission struct {
	At      time.Time
	Poll    *Poll
	Student *Student

	QuestionsAnswers []QuestionAnswer
}

// NewPollSubmission binds a submission to its poll and student.
func NewPollSubmission(at time.Time, poll *Poll, student *Student) *PollSubmission {
	return &PollSubmission{At: at, Poll: poll, Student: student}
}

// AddQuestionsAnswers attaches the positionally paired question/answer list.
// Called exactly once, immediately after construction.
func (s *PollSubmission) AddQuestionsAnswers(questions []Question, answers []Answer) {
	for i := range questions {
		s.QuestionsAnswers = append(s.QuestionsAnswers, QuestionAnswer{
			Question: questions[i],
			Answer:   answers[i],
		})
	}
}

// Student is a roster member. The ID comes from the roster and is immutable;
// Email is backfilled from the first matched submission and overwritten by
// every later match, since roster files often lack it.
type Student struct {
	ID      string
	Name    string
	Surname string
	Email   string
	Remarks string

	// Submissions is the student's personal history, keyed by poll
	// aggregate key. Last write wins per key.
	Submissions map[string]*PollSubmission
}

// AddSubmission records the student's submission for one poll instance,
// overwriting any prior submission under the same key.
func (s *Student) AddSubmission(pollKey string, sub *PollSubmission) {
	if s.Submissions == nil {
		s.Submissions = make(map[string]*PollSubmission)
	}
	s.Submissions[pollKey] = sub
}

// Registration ties a student to one registration list. The same student may
// appear in several lists.
type Registration struct {
	List    string
	Student *Student
}

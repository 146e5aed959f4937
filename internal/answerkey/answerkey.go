// Package answerkey holds the answer-key directory: the canonical questions
// and accepted answers that define each known poll, and the matcher that
// resolves a submission's question set to a poll name.
package answerkey

import (
	"errors"
	"fmt"

	"github.com/pavelanni/pollscan/internal/model"
)

// ErrUnrecognizedPoll is returned when a question set matches no known poll.
var ErrUnrecognizedPoll = errors.New("question set matches no known poll")

// ErrUnknownQuestion is returned when a question text is not part of the
// named poll's question bank.
var ErrUnknownQuestion = errors.New("question not in poll's answer key")

// ErrAnswerMismatch is returned when the number of answers does not line up
// with the number of questions.
var ErrAnswerMismatch = errors.New("question/answer count mismatch")

// Entry is one question of a poll together with its accepted answers.
type Entry struct {
	Question model.Question
	Answers  []model.Answer
}

// Directory maps poll names to their answer keys. Polls keep the order they
// were defined in, which makes the matcher's first-match tie-break stable
// across runs. A question-text index is built as entries are added so row
// matching is a lookup, not a scan over every poll.
type Directory struct {
	order   []string
	entries map[string][]Entry
	bank    map[string]map[string]bool // poll -> normalized question texts
	polls   map[string][]string        // normalized question text -> polls, definition order
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[string][]Entry),
		bank:    make(map[string]map[string]bool),
		polls:   make(map[string][]string),
	}
}

// Add appends one question with its accepted answers to a poll's key.
// The first Add for a poll fixes its position in the directory order.
func (d *Directory) Add(poll string, question model.Question, answers []model.Answer) {
	if _, ok := d.entries[poll]; !ok {
		d.order = append(d.order, poll)
		d.bank[poll] = make(map[string]bool)
	}
	d.entries[poll] = append(d.entries[poll], Entry{Question: question, Answers: answers})
	if !d.bank[poll][question.Text] {
		d.bank[poll][question.Text] = true
		d.polls[question.Text] = append(d.polls[question.Text], poll)
	}
}

// Polls returns the poll names in definition order.
func (d *Directory) Polls() []string {
	return d.order
}

// Entries returns the ordered answer key of one poll.
func (d *Directory) Entries(poll string) []Entry {
	return d.entries[poll]
}

// Match resolves a row's question texts to a poll name. A poll matches only
// if every question's normalized text appears verbatim in that poll's bank;
// when several polls match, the first in definition order wins. An empty
// question set matches nothing.
func (d *Directory) Match(questionTexts []string) (string, error) {
	if len(questionTexts) == 0 {
		return "", ErrUnrecognizedPoll
	}
	candidates := d.polls[model.NormalizeText(questionTexts[0])]
	for _, text := range questionTexts[1:] {
		norm := model.NormalizeText(text)
		var kept []string
		for _, poll := range candidates {
			if d.bank[poll][norm] {
				kept = append(kept, poll)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			break
		}
	}
	if len(candidates) == 0 {
		return "", ErrUnrecognizedPoll
	}
	return candidates[0], nil
}

// Questions resolves raw question texts against a poll's key, returning the
// canonical Question values in the order given.
func (d *Directory) Questions(poll string, texts []string) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(texts))
	for _, text := range texts {
		q := model.NewQuestion(text)
		if !d.bank[poll][q.Text] {
			return nil, fmt.Errorf("%w: %q in poll %q", ErrUnknownQuestion, q.Text, poll)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Answers builds Answer values from the raw alternative lists submitted for
// the given questions, positionally paired.
func (d *Directory) Answers(poll string, questions []model.Question, raw [][]string) ([]model.Answer, error) {
	if len(questions) != len(raw) {
		return nil, fmt.Errorf("%w: %d questions, %d answers in poll %q",
			ErrAnswerMismatch, len(questions), len(raw), poll)
	}
	answers := make([]model.Answer, 0, len(raw))
	for _, alts := range raw {
		answers = append(answers, model.NewAnswer(alts))
	}
	return answers, nil
}

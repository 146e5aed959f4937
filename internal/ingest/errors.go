package ingest

import (
	"errors"

	"github.com/pavelanni/pollscan/internal/answerkey"
)

// ErrMalformedRow is returned for rows too short to carry a submission.
var ErrMalformedRow = errors.New("malformed row")

// ErrTimestampParse is returned when the submission datetime does not match
// the export's timestamp format.
var ErrTimestampParse = errors.New("cannot parse submission timestamp")

// ErrQuestionAnswerMismatch is returned when a row's questions and answers
// cannot be positionally paired.
var ErrQuestionAnswerMismatch = answerkey.ErrAnswerMismatch

// ErrUnrecognizedPoll is returned when a row's question set matches no known
// poll. The row is skipped; ingestion continues.
var ErrUnrecognizedPoll = answerkey.ErrUnrecognizedPoll

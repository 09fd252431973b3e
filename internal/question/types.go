package question

import (
	"io"

	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

// GenerateRequest asks the external generator for questions drawn from a document.
type GenerateRequest struct {
	Document     io.Reader
	Filename     string
	QuestionType session.QuestionType
	Count        int
}

// Generated is one question as returned by the generator, before persistence.
type Generated struct {
	Prompt      string
	Type        session.QuestionType
	Distractors []string
	Answer      string
}

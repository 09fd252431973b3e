package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gokatarajesh/classroom-quiz/internal/metrics"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

// ListCache caches question lists per session (implemented by the Redis Cache).
type ListCache interface {
	Get(ctx context.Context, sessionID string) ([]session.Question, bool, error)
	Set(ctx context.Context, sessionID string, questions []session.Question) error
	Invalidate(ctx context.Context, sessionID string) error
}

// Generator produces questions from a document (requires QGEN_URL).
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Generated, error)
}

type questionRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]session.Question, error)
	QuizOwner(ctx context.Context, quizID uuid.UUID) (uuid.UUID, string, error)
	Append(ctx context.Context, quizID uuid.UUID, questions []session.Question) ([]session.Question, error)
}

// ErrGeneratorUnavailable is returned when no generator is configured.
var ErrGeneratorUnavailable = errors.New("question generator not configured")

type ServiceOptions struct {
	DefaultPoints    int
	DefaultTimeLimit int
	FetchTimeout     time.Duration
}

// Service loads session questions through the cache and imports generated ones.
type Service struct {
	repo      questionRepository
	cache     ListCache
	generator Generator
	opts      ServiceOptions
	logger    zerolog.Logger
	sf        singleflight.Group
}

var _ session.QuestionSource = (*Service)(nil)

func NewService(repo questionRepository, cache ListCache, generator Generator, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultPoints <= 0 {
		opts.DefaultPoints = 1
	}
	if opts.DefaultTimeLimit <= 0 {
		opts.DefaultTimeLimit = 30
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		generator: generator,
		opts:      opts,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

// FetchQuestions returns the ordered questions of a session. Concurrent misses
// for the same session share one database read.
func (s *Service) FetchQuestions(ctx context.Context, sessionID string) ([]session.Question, error) {
	if cached, ok, err := s.cache.Get(ctx, sessionID); err == nil && ok {
		metrics.QuestionCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("question cache read failed")
	}
	metrics.QuestionCacheLookups.WithLabelValues("miss").Inc()

	result, err, _ := s.sf.Do(sessionID, func() (interface{}, error) {
		loadCtx := ctx
		if s.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
			defer cancel()
		}

		questions, err := s.repo.ListBySession(loadCtx, sessionID)
		if err != nil {
			return nil, err
		}
		for i := range questions {
			questions[i] = s.withDefaults(questions[i])
		}

		if err := s.cache.Set(ctx, sessionID, questions); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("question cache write failed")
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}

	shared := result.([]session.Question)
	out := make([]session.Question, len(shared))
	copy(out, shared)
	return out, nil
}

// GenerateForQuiz asks the generator for questions, stores them on the quiz with
// default points and time limit, and drops the cached list of its session.
func (s *Service) GenerateForQuiz(ctx context.Context, professorID, quizID uuid.UUID, req GenerateRequest) ([]session.Question, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	owner, classCode, err := s.repo.QuizOwner(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if owner != professorID {
		return nil, session.ErrNotProfessor
	}

	generated, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := make([]session.Question, 0, len(generated))
	for _, g := range generated {
		if g.Prompt == "" || g.Answer == "" {
			continue
		}
		qType := g.Type
		if qType == "" {
			qType = req.QuestionType
		}
		questions = append(questions, s.withDefaults(session.Question{
			Prompt:      g.Prompt,
			Type:        qType,
			Distractors: g.Distractors,
			Answer:      g.Answer,
		}))
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("generate questions: generator returned no usable questions")
	}

	stored, err := s.repo.Append(ctx, quizID, questions)
	if err != nil {
		return nil, fmt.Errorf("store generated questions: %w", err)
	}

	if err := s.cache.Invalidate(ctx, classCode); err != nil {
		s.logger.Warn().Err(err).Str("session_id", classCode).Msg("question cache invalidate failed")
	}

	s.logger.Info().
		Str("quiz_id", quizID.String()).
		Int("requested", req.Count).
		Int("stored", len(stored)).
		Msg("generated questions stored")

	return stored, nil
}

func (s *Service) withDefaults(q session.Question) session.Question {
	if q.Points <= 0 {
		q.Points = s.opts.DefaultPoints
	}
	if q.TimeLimit <= 0 {
		q.TimeLimit = s.opts.DefaultTimeLimit
	}
	if q.Type == session.QuestionShortAnswer {
		q.Distractors = nil
	}
	return q
}

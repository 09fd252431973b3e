package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/question"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

// Config holds connection details for the question generation service.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client implements question.Generator over the generator's multipart API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

var _ question.Generator = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "question_generator").Logger(),
	}
}

// Generate uploads the document and returns the questions the service drafted.
func (c *Client) Generate(ctx context.Context, req question.GenerateRequest) ([]question.Generated, error) {
	if c.config.URL == "" {
		return nil, question.ErrGeneratorUnavailable
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode generator payload: %w", err)
	}

	out := make([]question.Generated, 0, len(genResp.Questions))
	for _, q := range genResp.Questions {
		generated, ok := normalize(q, req.QuestionType)
		if !ok {
			c.logger.Warn().Str("question_type", q.QuestionType).Msg("skip generated question with unknown type")
			continue
		}
		out = append(out, generated)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("generator returned empty question set")
	}
	return out, nil
}

func encodeForm(req question.GenerateRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	part, err := w.CreateFormFile("pdf", filename)
	if err != nil {
		return nil, "", err
	}
	if req.Document != nil {
		if _, err := io.Copy(part, req.Document); err != nil {
			return nil, "", fmt.Errorf("read document: %w", err)
		}
	}
	if err := w.WriteField("question_type", string(req.QuestionType)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("num_questions", strconv.Itoa(req.Count)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func normalize(q generatedQuestion, fallback session.QuestionType) (question.Generated, bool) {
	qType := fallback
	if q.QuestionType != "" {
		parsed, ok := session.ParseQuestionType(q.QuestionType)
		if !ok {
			return question.Generated{}, false
		}
		qType = parsed
	}

	var distractors []string
	for _, d := range q.Distractor {
		d = strings.TrimSpace(d)
		if d == "" || strings.EqualFold(d, q.RightAnswer) {
			continue
		}
		distractors = append(distractors, d)
	}
	if qType == session.QuestionBoolean && len(distractors) == 0 {
		distractors = []string{booleanOpposite(q.RightAnswer)}
	}

	return question.Generated{
		Prompt:      strings.TrimSpace(q.Question),
		Type:        qType,
		Distractors: distractors,
		Answer:      strings.TrimSpace(q.RightAnswer),
	}, true
}

func booleanOpposite(answer string) string {
	if strings.EqualFold(strings.TrimSpace(answer), "true") {
		return "false"
	}
	return "true"
}

type generatedQuestion struct {
	ID           json.RawMessage `json:"id"`
	Question     string          `json:"question"`
	QuestionType string          `json:"question_type"`
	Distractor   []string        `json:"distractor"`
	RightAnswer  string          `json:"right_answer"`
}

type generatorResponse struct {
	Questions []generatedQuestion `json:"questions"`
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/auth"
	"github.com/gokatarajesh/classroom-quiz/internal/export"
	"github.com/gokatarajesh/classroom-quiz/internal/question"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
	httperrors "github.com/gokatarajesh/classroom-quiz/pkg/http/errors"
)

const maxUploadBytes = 20 << 20

// QuestionGenerator drafts questions for a quiz from an uploaded document.
type QuestionGenerator interface {
	GenerateForQuiz(ctx context.Context, professorID, quizID uuid.UUID, req question.GenerateRequest) ([]session.Question, error)
}

// RESTHandlers serves the session REST surface. Every route expects auth.Middleware.
type RESTHandlers struct {
	sessions  Sessions
	generator QuestionGenerator
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewRESTHandlers creates the REST handlers. generator may be nil when no
// question generation service is configured.
func NewRESTHandlers(sessions Sessions, generator QuestionGenerator, logger zerolog.Logger) *RESTHandlers {
	return &RESTHandlers{
		sessions:  sessions,
		generator: generator,
		validate:  newValidator(),
		logger:    logger.With().Str("component", "rest_gateway").Logger(),
	}
}

type openSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
}

// OpenSession handles POST /v1/sessions: the professor opens a quiz lobby.
func (h *RESTHandlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), firstInvalidField(err))
		return
	}

	coord, err := h.sessions.Open(r.Context(), req.SessionID, claims.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("open session failed")
		respondSessionError(w, err)
		return
	}

	httperrors.RespondJSON(w, http.StatusCreated, coord.Snapshot())
}

// GetSession handles GET /v1/sessions/{id}.
func (h *RESTHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, snap)
}

// GetSummary handles GET /v1/sessions/{id}/summary for the calling participant.
func (h *RESTHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	coord, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	summary, err := coord.Summary(claims.UserID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, summary)
}

// ExportLeaderboard handles GET /v1/sessions/{id}/export: an xlsx of the
// final standings, available to the professor once the game has ended.
func (h *RESTHandlers) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	coord, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if coord.ProfessorID() != claims.UserID {
		respondSessionError(w, session.ErrNotProfessor)
		return
	}
	snap := coord.Snapshot()
	if snap.Phase != session.PhaseEnded {
		respondSessionError(w, session.ErrSessionNotEnded)
		return
	}

	report := export.Report{
		SessionID:     snap.SessionID,
		QuestionCount: snap.QuestionCount,
		GeneratedAt:   time.Now().UTC(),
		Standings:     snap.Standings,
	}
	data, err := export.LeaderboardXLSX(report)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", snap.SessionID).Msg("export failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeExportFailed, "Could not build export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type generateForm struct {
	QuestionType string `form:"question_type" validate:"required,question_type"`
	Count        int    `form:"num_questions" validate:"required,min=1,max=50"`
}

type generateResponse struct {
	QuizID    string             `json:"quiz_id"`
	Questions []session.Question `json:"questions"`
}

// GenerateQuestions handles POST /v1/quizzes/{id}/questions/generate. The
// multipart form carries the source document as "pdf" plus question_type and
// num_questions.
func (h *RESTHandlers) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	if h.generator == nil {
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeFeatureNotAvailable, "Question generation is not configured")
		return
	}

	quizID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "Invalid quiz id", "id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httperrors.RespondError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest, "Invalid multipart form")
		return
	}

	count, _ := strconv.Atoi(r.FormValue("num_questions"))
	form := generateForm{QuestionType: r.FormValue("question_type"), Count: count}
	if err := h.validate.Struct(form); err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), firstInvalidField(err))
		return
	}
	qType, _ := session.ParseQuestionType(form.QuestionType)

	file, header, err := r.FormFile("pdf")
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Document is required", "pdf")
		return
	}
	defer file.Close()

	stored, err := h.generator.GenerateForQuiz(r.Context(), claims.UserID, quizID, question.GenerateRequest{
		Document:     file,
		Filename:     header.Filename,
		QuestionType: qType,
		Count:        form.Count,
	})
	if err != nil {
		status, code := classify(err)
		if code == httperrors.ErrCodeBackendFailed {
			h.logger.Error().Err(err).Str("quiz_id", quizID.String()).Msg("question generation failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeGenerationFailed, "Question generation failed")
			return
		}
		httperrors.RespondError(w, status, code, err.Error())
		return
	}

	httperrors.RespondJSON(w, http.StatusCreated, generateResponse{QuizID: quizID.String(), Questions: stored})
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/classroom-quiz/internal/auth"
	"github.com/gokatarajesh/classroom-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/classroom-quiz/internal/events"
	"github.com/gokatarajesh/classroom-quiz/internal/export"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	"github.com/gokatarajesh/classroom-quiz/internal/question"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

type memBackend struct {
	mu       sync.Mutex
	statuses []string
}

func (b *memBackend) JoinRoom(context.Context, string, uuid.UUID, session.Profile, string) (bool, error) {
	return true, nil
}

func (b *memBackend) LeaveRoom(context.Context, string, uuid.UUID) (bool, error) {
	return true, nil
}

func (b *memBackend) SubmitAnswer(context.Context, string, session.AnswerRecord) (bool, error) {
	return true, nil
}

func (b *memBackend) UpdateLeaderboard(context.Context, string, uuid.UUID, session.Profile, int, int, int) ([]leaderboard.Standing, error) {
	return nil, nil
}

func (b *memBackend) SendEndGame(context.Context, string) (bool, error) {
	return true, nil
}

func (b *memBackend) OpenLobby(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, session.QuizStatusInLobby)
	return nil
}

func (b *memBackend) SetQuizStatus(_ context.Context, _ string, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
	return nil
}

type fixedQuestions []session.Question

func (q fixedQuestions) FetchQuestions(context.Context, string) ([]session.Question, error) {
	return q, nil
}

type ownerDirectory map[string]uuid.UUID

func (d ownerDirectory) QuizOwner(_ context.Context, sessionID string) (uuid.UUID, error) {
	owner, ok := d[sessionID]
	if !ok {
		return uuid.Nil, session.ErrSessionNotFound
	}
	return owner, nil
}

type stubGenerator struct {
	got question.GenerateRequest
	doc string
}

func (g *stubGenerator) GenerateForQuiz(_ context.Context, _ uuid.UUID, _ uuid.UUID, req question.GenerateRequest) ([]session.Question, error) {
	g.got = req
	data, _ := io.ReadAll(req.Document)
	g.doc = string(data)
	return []session.Question{{ID: uuid.New(), Prompt: "Is the sky blue?", Type: session.QuestionBoolean, Answer: "true", Points: 1, TimeLimit: 30}}, nil
}

type testStack struct {
	srv       *httptest.Server
	verifier  *jwt.Verifier
	manager   *session.Manager
	professor uuid.UUID
	generator *stubGenerator
}

func newTestStack(t *testing.T, questions []session.Question, opts session.Options) *testStack {
	t.Helper()
	logger := zerolog.New(io.Discard)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bus := events.NewBus(16, logger)
	t.Cleanup(func() { _ = bus.Close() })

	professor := uuid.New()
	store := session.NewStateStore(rdb, time.Hour, time.Hour, logger)
	manager := session.NewManager(&memBackend{}, fixedQuestions(questions), ownerDirectory{"CS101": professor}, store, bus, opts, logger)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	hub := ws.NewHub(logger)
	broadcaster := NewBroadcaster(bus, hub, logger)
	require.NoError(t, broadcaster.Start())
	t.Cleanup(broadcaster.Stop)

	verifier := jwt.NewVerifier([]byte("test-secret"), "")
	generator := &stubGenerator{}
	wsHandler := NewWSHandler(manager, hub, verifier, &websocket.Upgrader{}, logger)
	rest := NewRESTHandlers(manager, generator, logger)

	mw := auth.Middleware(verifier, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/sessions", wsHandler.HandleWebSocket)
	mux.Handle("POST /v1/sessions", mw(auth.RequireRole(jwt.RoleProfessor, http.HandlerFunc(rest.OpenSession))))
	mux.Handle("GET /v1/sessions/{id}", mw(http.HandlerFunc(rest.GetSession)))
	mux.Handle("GET /v1/sessions/{id}/summary", mw(http.HandlerFunc(rest.GetSummary)))
	mux.Handle("GET /v1/sessions/{id}/export", mw(auth.RequireRole(jwt.RoleProfessor, http.HandlerFunc(rest.ExportLeaderboard))))
	mux.Handle("POST /v1/quizzes/{id}/questions/generate", mw(auth.RequireRole(jwt.RoleProfessor, http.HandlerFunc(rest.GenerateQuestions))))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.CloseAll)

	return &testStack{srv: srv, verifier: verifier, manager: manager, professor: professor, generator: generator}
}

func (s *testStack) token(t *testing.T, id uuid.UUID, name, role string) string {
	t.Helper()
	tok, err := s.verifier.Sign(jwt.Claims{UserID: id, DisplayName: name, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testStack) professorToken(t *testing.T) string {
	return s.token(t, s.professor, "Dr. Rao", jwt.RoleProfessor)
}

func (s *testStack) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testStack) openSession(t *testing.T) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/v1/sessions", s.professorToken(t), strings.NewReader(`{"session_id":"CS101"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (s *testStack) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/sessions?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType, requestID string, payload any) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	msg.RequestID = requestID
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ws.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func decodePayload[T any](t *testing.T, msg ws.Message) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	return out
}

func mcq(points, seconds int) session.Question {
	return session.Question{
		ID:          uuid.New(),
		Prompt:      "2 + 2 = ?",
		Type:        session.QuestionMultipleChoice,
		Distractors: []string{"3", "5"},
		Answer:      "4",
		Points:      points,
		TimeLimit:   seconds,
	}
}

func slowOptions() session.Options {
	return session.Options{TickInterval: time.Hour, RevealDelay: time.Hour}
}

func TestLiveGameOverWebSocket(t *testing.T) {
	s := newTestStack(t, []session.Question{mcq(2, 30), mcq(1, 30)}, slowOptions())
	s.openSession(t)

	ada := uuid.New()
	student := s.dial(t, s.token(t, ada, "Ada", jwt.RoleStudent))
	send(t, student, ws.TypeJoinSession, "r1", ws.JoinSessionPayload{SessionID: "CS101"})
	joined := readUntil(t, student, ws.TypeResumeState)
	assert.Equal(t, "r1", joined.RequestID)
	state := decodePayload[session.ResumeState](t, joined)
	assert.True(t, state.Joined)
	assert.Equal(t, session.PhaseLobby, state.Phase)

	prof := s.dial(t, s.professorToken(t))
	send(t, prof, ws.TypeJoinSession, "p1", ws.JoinSessionPayload{SessionID: "CS101"})
	readUntil(t, prof, ws.TypeResumeState)

	send(t, prof, ws.TypeStartGame, "p2", ws.SessionRefPayload{SessionID: "CS101"})
	readUntil(t, prof, ws.TypeGameStarted)
	readUntil(t, student, ws.TypeGameStarted)
	started := decodePayload[ws.QuestionStartedPayload](t, readUntil(t, student, ws.TypeQuestionStarted))
	assert.Equal(t, 0, started.QuestionIndex)
	assert.Equal(t, []string{"3", "4", "5"}, started.Question.Options)

	send(t, student, ws.TypeSubmitAnswer, "r2", ws.SubmitAnswerPayload{SessionID: "CS101", QuestionID: started.Question.ID, Answer: "4"})
	ack := decodePayload[ws.AnswerAckPayload](t, readUntil(t, student, ws.TypeAnswerAck))
	assert.True(t, ack.Accepted)
	assert.True(t, ack.Correct)
	assert.Equal(t, 2, ack.PointsAwarded)
	assert.True(t, ack.LeaderboardSynced)

	send(t, student, ws.TypeSubmitAnswer, "r3", ws.SubmitAnswerPayload{SessionID: "CS101", QuestionID: started.Question.ID, Answer: "5"})
	dup := decodePayload[ws.AnswerAckPayload](t, readUntil(t, student, ws.TypeAnswerAck))
	assert.False(t, dup.Accepted)
	assert.Equal(t, 2, dup.Score)

	for {
		board := decodePayload[ws.LeaderboardUpdatePayload](t, readUntil(t, prof, ws.TypeLeaderboardUpdate))
		if len(board.Top) == 1 && board.Top[0].Score == 2 {
			assert.Equal(t, "Ada", board.Top[0].DisplayName)
			break
		}
	}

	resp := s.do(t, http.MethodGet, "/v1/sessions/CS101", s.professorToken(t), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, session.PhaseInProgress, snap.Phase)
	require.Len(t, snap.Standings, 1)
	assert.Equal(t, 2, snap.Standings[0].Score)
}

func TestKickedParticipantIsNotified(t *testing.T) {
	s := newTestStack(t, []session.Question{mcq(1, 30)}, slowOptions())
	s.openSession(t)

	ada, ben := uuid.New(), uuid.New()
	adaConn := s.dial(t, s.token(t, ada, "Ada", jwt.RoleStudent))
	benConn := s.dial(t, s.token(t, ben, "Ben", jwt.RoleStudent))
	for _, conn := range []*websocket.Conn{adaConn, benConn} {
		send(t, conn, ws.TypeJoinSession, "", ws.JoinSessionPayload{SessionID: "CS101"})
		readUntil(t, conn, ws.TypeResumeState)
	}

	prof := s.dial(t, s.professorToken(t))
	send(t, prof, ws.TypeKickParticipant, "", ws.KickParticipantPayload{SessionID: "CS101", ParticipantID: ben.String()})

	kicked := decodePayload[ws.KickedPayload](t, readUntil(t, benConn, ws.TypeKicked))
	assert.Equal(t, ben.String(), kicked.ParticipantID)

	left := decodePayload[ws.ParticipantLeftPayload](t, readUntil(t, adaConn, ws.TypeParticipantLeft))
	assert.Equal(t, ben.String(), left.ParticipantID)
	assert.Equal(t, 1, left.Count)

	send(t, benConn, ws.TypeJoinSession, "again", ws.JoinSessionPayload{SessionID: "CS101"})
	errMsg := readUntil(t, benConn, ws.TypeError)
	assert.Equal(t, "again", errMsg.RequestID)
	assert.Equal(t, "kicked", decodePayload[ws.ErrorPayload](t, errMsg).Code)
}

func TestStudentCannotStartOrKick(t *testing.T) {
	s := newTestStack(t, []session.Question{mcq(1, 30)}, slowOptions())
	s.openSession(t)

	conn := s.dial(t, s.token(t, uuid.New(), "Ada", jwt.RoleStudent))
	send(t, conn, ws.TypeStartGame, "s1", ws.SessionRefPayload{SessionID: "CS101"})
	assert.Equal(t, "not_professor", decodePayload[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, ws.TypeSubmitAnswer, "s2", ws.SubmitAnswerPayload{SessionID: "CS101", QuestionID: "nope"})
	assert.Equal(t, "invalid_payload", decodePayload[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, "dance", "s3", struct{}{})
	assert.Equal(t, "unknown_message_type", decodePayload[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, ws.TypeJoinSession, "s4", ws.JoinSessionPayload{SessionID: "NOPE"})
	assert.Equal(t, "session_not_found", decodePayload[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, ws.TypePing, "s5", struct{}{})
	assert.Equal(t, "s5", readUntil(t, conn, ws.TypePong).RequestID)
}

func TestGameEndsThenSummaryAndExport(t *testing.T) {
	s := newTestStack(t, []session.Question{mcq(1, 1)}, session.Options{TickInterval: 10 * time.Millisecond, RevealDelay: 10 * time.Millisecond})
	s.openSession(t)

	ada := uuid.New()
	adaToken := s.token(t, ada, "Ada", jwt.RoleStudent)
	student := s.dial(t, adaToken)
	send(t, student, ws.TypeJoinSession, "", ws.JoinSessionPayload{SessionID: "CS101"})
	readUntil(t, student, ws.TypeResumeState)

	resp := s.do(t, http.MethodGet, "/v1/sessions/CS101/export", s.professorToken(t), nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	prof := s.dial(t, s.professorToken(t))
	send(t, prof, ws.TypeStartGame, "", ws.SessionRefPayload{SessionID: "CS101"})

	ended := decodePayload[ws.GameEndedPayload](t, readUntil(t, student, ws.TypeGameEnded))
	require.Len(t, ended.Leaderboard, 1)
	assert.Equal(t, 0, ended.Leaderboard[0].Score)
	assert.Equal(t, 1, ended.Leaderboard[0].WrongCount)

	resp = s.do(t, http.MethodGet, "/v1/sessions/CS101/summary", adaToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary session.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Rank)
	require.Len(t, summary.Review, 1)
	assert.Equal(t, "", summary.Review[0].UserAnswer)
	assert.Equal(t, "4", summary.Review[0].CorrectAnswer)

	resp = s.do(t, http.MethodGet, "/v1/sessions/CS101/export", s.professorToken(t), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "leaderboard-CS101.xlsx")

	send(t, prof, ws.TypeDismissSession, "", ws.SessionRefPayload{SessionID: "CS101"})
	readUntil(t, student, ws.TypeSessionDismissed)
	require.Eventually(t, func() bool {
		_, err := s.manager.Get("CS101")
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestRESTAuthAndErrors(t *testing.T) {
	s := newTestStack(t, []session.Question{mcq(1, 30)}, slowOptions())

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.srv.URL, "http")+"/ws/sessions", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	studentToken := s.token(t, uuid.New(), "Ada", jwt.RoleStudent)
	res := s.do(t, http.MethodPost, "/v1/sessions", studentToken, strings.NewReader(`{"session_id":"CS101"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = s.do(t, http.MethodPost, "/v1/sessions", s.professorToken(t), strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, "session_id", body.Field)

	otherProf := s.token(t, uuid.New(), "Dr. Who", jwt.RoleProfessor)
	res = s.do(t, http.MethodPost, "/v1/sessions", otherProf, strings.NewReader(`{"session_id":"CS101"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = s.do(t, http.MethodGet, "/v1/sessions/NOPE", studentToken, nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = s.do(t, http.MethodGet, "/v1/sessions/CS101", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestGenerateQuestionsUpload(t *testing.T) {
	s := newTestStack(t, nil, slowOptions())
	quizID := uuid.New()

	build := func(fields map[string]string, withFile bool) (io.Reader, string) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, w.WriteField(k, v))
		}
		if withFile {
			part, err := w.CreateFormFile("pdf", "lecture.pdf")
			require.NoError(t, err)
			_, _ = part.Write([]byte("%PDF notes"))
		}
		require.NoError(t, w.Close())
		return &buf, w.FormDataContentType()
	}

	body, contentType := build(map[string]string{"question_type": "true_false", "num_questions": "3"}, true)
	res := s.do(t, http.MethodPost, "/v1/quizzes/"+quizID.String()+"/questions/generate", s.professorToken(t), body, contentType)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, session.QuestionBoolean, s.generator.got.QuestionType)
	assert.Equal(t, 3, s.generator.got.Count)
	assert.Equal(t, "lecture.pdf", s.generator.got.Filename)
	assert.Equal(t, "%PDF notes", s.generator.doc)

	body, contentType = build(map[string]string{"question_type": "essay", "num_questions": "3"}, true)
	res = s.do(t, http.MethodPost, "/v1/quizzes/"+quizID.String()+"/questions/generate", s.professorToken(t), body, contentType)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body, contentType = build(map[string]string{"question_type": "boolean", "num_questions": "3"}, false)
	res = s.do(t, http.MethodPost, "/v1/quizzes/"+quizID.String()+"/questions/generate", s.professorToken(t), body, contentType)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

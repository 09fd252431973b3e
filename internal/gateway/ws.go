package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/auth"
	"github.com/gokatarajesh/classroom-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/classroom-quiz/internal/logging"
	"github.com/gokatarajesh/classroom-quiz/internal/metrics"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
	httperrors "github.com/gokatarajesh/classroom-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

const commandTimeout = 10 * time.Second

// Sessions is the registry the gateway drives.
type Sessions interface {
	Open(ctx context.Context, sessionID string, professorID uuid.UUID) (*session.Coordinator, error)
	Get(sessionID string) (*session.Coordinator, error)
	Snapshot(ctx context.Context, sessionID string) (session.Snapshot, error)
	Dismiss(ctx context.Context, sessionID string, actorID uuid.UUID) error
}

// WSHandler authenticates WebSocket clients and routes their session commands.
type WSHandler struct {
	sessions Sessions
	hub      *ws.Hub
	verifier auth.TokenVerifier
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates the session WebSocket handler.
func NewWSHandler(sessions Sessions, hub *ws.Hub, verifier auth.TokenVerifier, upgrader *websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		hub:      hub,
		verifier: verifier,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "ws_gateway").Logger(),
	}
}

// client is the per-connection state. Only the connection's read loop touches it.
type client struct {
	claims *jwt.Claims
	conn   *ws.Connection
	joined map[string]struct{}
	logger zerolog.Logger
}

func (c *client) id() uuid.UUID { return c.claims.UserID }

// HandleWebSocket upgrades the request after validating the token carried in
// the Authorization header or the token query parameter.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.serve(raw, claims)
}

func (h *WSHandler) serve(raw *websocket.Conn, claims *jwt.Claims) {
	logger := h.logger.With().Str("user_id", claims.UserID.String()).Str("role", claims.Role).Logger()
	c := &client{
		claims: claims,
		conn:   ws.NewConnection(raw, logger),
		joined: make(map[string]struct{}),
		logger: logger,
	}

	h.hub.RegisterConnection(c.id(), c.conn)
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	go c.conn.WritePump()

	c.conn.ReadPump(func(msg ws.Message) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return h.handleMessage(logging.IntoContext(ctx, logger), c, msg)
	})

	if h.hub.UnregisterConnection(c.id(), c.conn) {
		h.disconnect(c)
	}
}

// disconnect leaves every session the client joined as a participant. Scores
// are kept, so reconnecting and rejoining restores them.
func (h *WSHandler) disconnect(c *client) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	for sessionID := range c.joined {
		coord, err := h.sessions.Get(sessionID)
		if err != nil {
			continue
		}
		if err := coord.Leave(ctx, c.id()); err != nil && !errors.Is(err, session.ErrParticipantNotFound) {
			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("leave on disconnect failed")
		}
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, c *client, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeJoinSession:
		return h.handleJoin(ctx, c, msg)
	case ws.TypeLeaveSession:
		return h.handleLeave(ctx, c, msg)
	case ws.TypeStartGame:
		return h.handleStart(ctx, c, msg)
	case ws.TypeSubmitAnswer:
		return h.handleSubmit(ctx, c, msg)
	case ws.TypeKickParticipant:
		return h.handleKick(ctx, c, msg)
	case ws.TypeResumeSession:
		return h.handleResume(c, msg)
	case ws.TypeDismissSession:
		return h.handleDismiss(ctx, c, msg)
	case ws.TypePing:
		return h.reply(c, msg, ws.TypePong, struct{}{})
	default:
		return h.sendError(c, msg, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.JoinSessionPayload
	if err := decode(msg.Payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid join_session payload")
	}

	coord, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return h.sendSessionError(c, msg, err)
	}

	if coord.ProfessorID() == c.id() {
		h.hub.JoinSession(req.SessionID, c.id())
		state, err := coord.Resume(c.id())
		if err != nil {
			return h.sendSessionError(c, msg, err)
		}
		return h.reply(c, msg, ws.TypeResumeState, state)
	}
	if c.claims.IsProfessor() {
		return h.sendSessionError(c, msg, session.ErrNotProfessor)
	}

	profile := session.Profile{
		ID:          c.id(),
		DisplayName: firstNonEmpty(strings.TrimSpace(req.DisplayName), c.claims.DisplayName),
		Avatar:      firstNonEmpty(req.Avatar, c.claims.Avatar),
	}

	// Membership first so the joiner also sees its own participant_joined.
	h.hub.JoinSession(req.SessionID, c.id())
	state, err := coord.Join(ctx, profile)
	if err != nil {
		h.hub.LeaveSession(req.SessionID, c.id())
		return h.sendSessionError(c, msg, err)
	}
	c.joined[req.SessionID] = struct{}{}

	return h.reply(c, msg, ws.TypeResumeState, state)
}

func (h *WSHandler) handleLeave(ctx context.Context, c *client, msg ws.Message) error {
	coord, sessionID, ok := h.sessionFor(c, msg)
	if !ok {
		return nil
	}

	h.hub.LeaveSession(sessionID, c.id())
	if _, joined := c.joined[sessionID]; !joined {
		return nil
	}
	delete(c.joined, sessionID)

	if err := coord.Leave(ctx, c.id()); err != nil {
		return h.sendSessionError(c, msg, err)
	}
	return nil
}

func (h *WSHandler) handleStart(ctx context.Context, c *client, msg ws.Message) error {
	coord, _, ok := h.sessionFor(c, msg)
	if !ok {
		return nil
	}
	if err := coord.Start(ctx, c.id()); err != nil {
		return h.sendSessionError(c, msg, err)
	}
	return nil
}

func (h *WSHandler) handleSubmit(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.SubmitAnswerPayload
	if err := decode(msg.Payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload")
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid question id")
	}

	coord, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return h.sendSessionError(c, msg, err)
	}

	result, err := coord.Submit(ctx, c.id(), questionID, req.Answer)
	if err != nil {
		return h.sendSessionError(c, msg, err)
	}

	return h.reply(c, msg, ws.TypeAnswerAck, ws.AnswerAckPayload{
		SessionID:         req.SessionID,
		QuestionID:        req.QuestionID,
		Accepted:          result.Accepted,
		Correct:           result.Correct,
		PointsAwarded:     result.PointsAwarded,
		Score:             result.Score,
		LeaderboardSynced: result.LeaderboardSynced,
	})
}

func (h *WSHandler) handleKick(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.KickParticipantPayload
	if err := decode(msg.Payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid kick_participant payload")
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid participant id")
	}

	coord, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return h.sendSessionError(c, msg, err)
	}
	if err := coord.Kick(ctx, c.id(), participantID); err != nil {
		return h.sendSessionError(c, msg, err)
	}
	return nil
}

func (h *WSHandler) handleResume(c *client, msg ws.Message) error {
	coord, sessionID, ok := h.sessionFor(c, msg)
	if !ok {
		return nil
	}

	state, err := coord.Resume(c.id())
	if err != nil {
		return h.sendSessionError(c, msg, err)
	}
	if state.Joined {
		c.joined[sessionID] = struct{}{}
	}
	if state.Joined || coord.ProfessorID() == c.id() {
		h.hub.JoinSession(sessionID, c.id())
	}
	return h.reply(c, msg, ws.TypeResumeState, state)
}

func (h *WSHandler) handleDismiss(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.SessionRefPayload
	if err := decode(msg.Payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, "Invalid dismiss_session payload")
	}
	if err := h.sessions.Dismiss(ctx, req.SessionID, c.id()); err != nil {
		return h.sendSessionError(c, msg, err)
	}
	return nil
}

// sessionFor decodes a session reference and resolves it, replying with an
// error message when either step fails.
func (h *WSHandler) sessionFor(c *client, msg ws.Message) (*session.Coordinator, string, bool) {
	var req ws.SessionRefPayload
	if err := decode(msg.Payload, &req); err != nil || req.SessionID == "" {
		_ = h.sendError(c, msg, httperrors.ErrCodeInvalidPayload, fmt.Sprintf("Invalid %s payload", msg.Type))
		return nil, "", false
	}
	coord, err := h.sessions.Get(req.SessionID)
	if err != nil {
		_ = h.sendSessionError(c, msg, err)
		return nil, "", false
	}
	return coord, req.SessionID, true
}

func (h *WSHandler) reply(c *client, req ws.Message, msgType string, payload any) error {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.RequestID = req.RequestID
	return c.conn.Send(msg)
}

func (h *WSHandler) sendSessionError(c *client, req ws.Message, err error) error {
	_, code := classify(err)
	message := err.Error()
	if code == httperrors.ErrCodeBackendFailed {
		c.logger.Error().Err(err).Str("type", req.Type).Msg("session command failed")
		message = "Upstream storage failed"
	}
	return h.sendError(c, req, code, message)
}

func (h *WSHandler) sendError(c *client, req ws.Message, code, message string) error {
	return h.reply(c, req, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(payload, v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	connModels "credbridge/internal/connection/models"
	"credbridge/internal/platform/middleware"
	"credbridge/pkg/platform/httputil"
	"credbridge/pkg/requestcontext"
)

// SessionReader resolves the session a push channel is addressed to.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*connModels.Session, error)
}

// Handler upgrades browser requests into push channels.
type Handler struct {
	registry       *Registry
	sessions       SessionReader
	logger         *slog.Logger
	allowedOrigins []string
	sendTimeout    time.Duration
}

// NewHandler creates the push channel endpoint. With no allowed origins the
// origin check is skipped.
func NewHandler(registry *Registry, sessions SessionReader, logger *slog.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		registry:       registry,
		sessions:       sessions,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		sendTimeout:    DefaultSendTimeout,
	}
}

// Register mounts the websocket route. It carries no request timeout since
// the connection lives as long as the browser keeps it open.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ws/sessions/{sessionId}", h.HandleSessionSocket)
}

func (h *Handler) HandleSessionSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "push channel for unknown session",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.allowedOrigins,
		InsecureSkipVerify: len(h.allowedOrigins) == 0,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	ch := newWSChannel(conn, h.sendTimeout)
	defer ch.close(websocket.StatusNormalClosure, "")

	ack := ConnectedMessage{
		Type:         TypeConnected,
		SessionID:    session.SessionID,
		Status:       string(session.Status),
		ConnectionID: session.ConnectionID,
		Timestamp:    requestcontext.Now(ctx).UTC(),
	}
	if err := ch.Send(ctx, ack); err != nil {
		h.logger.WarnContext(ctx, "push channel ack failed",
			"request_id", requestID,
			"session_id", session.SessionID,
			"error", err,
		)
		return
	}

	h.registry.Subscribe(session.SessionID, ch)
	defer func() {
		h.registry.Unsubscribe(ch)
		h.logger.DebugContext(ctx, "push channel closed",
			"request_id", requestID,
			"session_id", session.SessionID,
			"channel_id", ch.ID(),
		)
	}()
	h.catchUp(ctx, ch, session)

	h.logger.InfoContext(ctx, "push channel opened",
		"request_id", requestID,
		"session_id", session.SessionID,
		"channel_id", ch.ID(),
	)

	h.readLoop(ctx, conn, ch)
}

// catchUp runs once the channel is subscribed. It rekeys connected sessions
// and pushes a status_update if the session moved after the ack was built:
// broadcasts in that window found no subscriber.
// sessionEventType marks updates that come from the stored session rather
// than from a platform webhook.
const sessionEventType = "session"

func (h *Handler) catchUp(ctx context.Context, ch *wsChannel, acked *connModels.Session) {
	current, err := h.sessions.GetSession(ctx, acked.SessionID)
	if err != nil {
		current = acked
	}
	if current.Status == connModels.StatusConnected && current.ConnectionID != "" {
		h.registry.Rekey(current.SessionID, current.ConnectionID)
	}
	if current.Status == acked.Status && current.ConnectionID == acked.ConnectionID {
		return
	}
	update := NewStatusUpdate(sessionEventType, string(current.Status), requestcontext.Now(ctx))
	update.SessionID = current.SessionID
	update.ConnectionID = current.ConnectionID
	if err := ch.Send(ctx, update); err != nil {
		h.logger.WarnContext(ctx, "push channel catch-up failed",
			"request_id", middleware.GetRequestID(ctx),
			"session_id", current.SessionID,
			"error", err,
		)
	}
}

// readLoop answers pings until the browser goes away.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ch *wsChannel) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.DebugContext(ctx, "push channel read ended",
					"channel_id", ch.ID(),
					"error", err,
				)
			}
			return
		}
		if msg.Type == "ping" {
			if err := ch.Send(ctx, pongMessage{Type: TypePong, Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		}
	}
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/logger"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Clients only send control frames
	maxMessageSize = 512
)

// ProgressHandler streams job events of a session over a websocket until
// the job finishes.
type ProgressHandler struct {
	service        service.BulkInviteService
	upgrader       websocket.Upgrader
	allowedOrigins []string
	logger         *slog.Logger
}

// NewProgressHandler creates a ProgressHandler. Connections with an Origin
// header must match one of allowedOrigins by prefix.
func NewProgressHandler(svc service.BulkInviteService, allowedOrigins []string, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ProgressHandler{
		service:        svc,
		allowedOrigins: allowedOrigins,
		logger:         logger.With("component", "progress_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *ProgressHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed != "" && strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// Stream handles GET /api/jobs/{sessionId}/progress
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	token, err := getPathParam(r, "sessionId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the HTTP error.
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := logger.FromContextOrDefault(ctx, h.logger)

	go h.readPump(conn, cancel)
	go h.pingPump(ctx, conn)

	err = h.service.WatchJob(ctx, token, func(e events.JobEvent) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(e)
	})

	code, reason := websocket.CloseNormalClosure, "job finished"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		// The peer went away.
		return
	case MapErrorToStatusCode(err) < http.StatusInternalServerError:
		code, reason = websocket.ClosePolicyViolation, GetSafeErrorMessage(err)
	default:
		log.Warn("progress stream failed", "error", redact.Error(err))
		code, reason = websocket.CloseInternalServerErr, GetSafeErrorMessage(err)
	}
	msg := websocket.FormatCloseMessage(code, truncateCloseReason(reason))
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// readPump discards client frames so control frames are processed, and
// cancels the stream when the peer disconnects.
func (h *ProgressHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure,
			) {
				h.logger.Debug("progress stream read error", "error", err)
			}
			return
		}
	}
}

func (h *ProgressHandler) pingPump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// truncateCloseReason keeps reason within the 123 bytes a close frame allows.
func truncateCloseReason(reason string) string {
	const maxReason = 123
	if len(reason) <= maxReason {
		return reason
	}
	return reason[:maxReason]
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

const (
	streamPingInterval = 15 * time.Second
	streamWriteWait    = 5 * time.Second
	streamBacklog      = 24 * time.Hour
)

// NotificationHandler serves the notification inbox and its websocket feed.
type NotificationHandler struct {
	notifications  *service.NotificationService
	allowedOrigins []string
	pollInterval   time.Duration
	logger         *slog.Logger
}

// NewNotificationHandler creates a new notification handler. The websocket
// feed polls for new rows every pollInterval.
func NewNotificationHandler(notifications *service.NotificationService, allowedOrigins []string, pollInterval time.Duration, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &NotificationHandler{
		notifications:  notifications,
		allowedOrigins: allowedOrigins,
		pollInterval:   pollInterval,
		logger:         logger,
	}
}

// Mount registers the notification routes.
func (h *NotificationHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", h.List)
	mux.HandleFunc("POST /api/notifications/read-all", h.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkRead)
	mux.HandleFunc("GET /ws/notifications", h.Stream)
}

// List handles GET /api/notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	out, err := h.notifications.List(r.Context(), sess.UserID, unread, listOptions(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *NotificationHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// Stream handles GET /ws/notifications. Unread notifications from the last
// day are sent first, then new ones as they arrive.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	up := h.upgrader()
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(ws, cancel)

	if err := h.pushLoop(ctx, ws, sess.UserID); err != nil {
		h.logger.Debug("notification stream ended",
			slog.String("user_id", sess.UserID),
			slog.String("reason", err.Error()),
		)
	}
}

// readPump discards client frames and cancels the stream when the peer goes away.
func (h *NotificationHandler) readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	ws.SetReadLimit(512)
	for {
		if _, _, err := ws.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *NotificationHandler) pushLoop(ctx context.Context, ws *websocket.Conn, userID string) error {
	since := time.Now().Add(-streamBacklog)
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		next, err := h.push(ctx, ws, userID, since)
		if err != nil {
			return err
		}
		since = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(streamWriteWait)); err != nil {
				return err
			}
		case <-poll.C:
		}
	}
}

// push sends unread notifications created after since and returns the new
// high-water mark.
func (h *NotificationHandler) push(ctx context.Context, ws *websocket.Conn, userID string, since time.Time) (time.Time, error) {
	items, err := h.notifications.Since(ctx, userID, since)
	if err != nil {
		h.logger.Warn("failed to poll notifications",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return since, nil
	}
	for _, n := range items {
		if n.CreatedAt.After(since) {
			since = n.CreatedAt
		}
		if n.Read {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := ws.WriteJSON(streamMessage{Type: "notification", Notification: n}); err != nil {
			return since, err
		}
	}
	return since, nil
}

type streamMessage struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

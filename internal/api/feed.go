package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedHandler upgrades to a WebSocket and pushes one JSON frame per
// snapshot. Clients never send anything meaningful; reads only serve to
// notice the close.
type FeedHandler struct {
	services *service.Services
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewFeedHandler(services *service.Services, allowedOrigins []string, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		services: services,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// snapshotFrame is what a client receives for each snapshot.
type snapshotFrame[T any] struct {
	Items []T       `json:"items"`
	At    time.Time `json:"at"`
}

// Profiles handles GET /v1/feeds/profiles
func (h *FeedHandler) Profiles(c *gin.Context) {
	feed, err := h.services.Profiles.WatchComplete(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	stream(h, c, feed, toPublicProfiles)
}

// Partners handles GET /v1/feeds/partners
func (h *FeedHandler) Partners(c *gin.Context) {
	feed, err := h.services.Profiles.WatchPartners(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	stream(h, c, feed, toPublicProfiles)
}

// Conversations handles GET /v1/feeds/conversations
func (h *FeedHandler) Conversations(c *gin.Context) {
	feed, err := h.services.Conversations.WatchForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	stream(h, c, feed, asIs[models.Conversation])
}

// Messages handles GET /v1/feeds/conversations/:id/messages
func (h *FeedHandler) Messages(c *gin.Context) {
	feed, err := h.services.Messages.Watch(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	stream(h, c, feed, asIs[models.Message])
}

func asIs[T any](items []T) []T { return items }

// stream owns feed from here on and closes it when the socket goes away,
// the feed ends, or a write fails. view shapes each snapshot for the wire.
func stream[T, V any](h *FeedHandler, c *gin.Context, feed *realtime.Feed[T], view func([]T) []V) {
	defer feed.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	uid := middleware.GetUserID(c)
	h.logger.Debug("feed opened", zap.String("user_id", uid), zap.String("path", c.FullPath()))

	go readUntilClosed(conn, feed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-feed.Snapshots():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if snap.Err != nil {
				_ = conn.WriteJSON(errorResponse{Error: apperr.MessageOf(snap.Err), Code: apperr.CodeOf(snap.Err)})
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed failed"))
				return
			}
			items := view(snap.Items)
			if items == nil {
				items = []V{}
			}
			if err := conn.WriteJSON(snapshotFrame[V]{Items: items, At: snap.At}); err != nil {
				h.logger.Debug("feed write failed", zap.String("user_id", uid), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains the client side. Any read error, including a
// normal close frame, ends the feed.
func readUntilClosed[T any](conn *websocket.Conn, feed *realtime.Feed[T]) {
	defer feed.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// originChecker allows every origin for "*" and otherwise only the
// configured ones. Requests without an Origin header are not from a
// browser and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

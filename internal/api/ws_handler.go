package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/cache"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
	wsMaxMessage   = 4 << 10
	wsMaxWatched   = 100
)

// WsHandler 把当前用户的文档事件推送给已登录的 WebSocket 连接，其它标签页据此刷新本地副本。
//
// 协议：
//   - 第一条消息必须是 {"type":"auth","token":"...","origin":"..."}；origin 可选，
//     与写请求的 X-Correlation-ID 相同时，该连接不会收到自己触发的事件。
//   - 之后可发送 {"type":"watch","documentIds":[...]} 只关注部分文档，空数组表示全部。
//   - 服务端推送 cache.Event 的 JSON。
type WsHandler struct {
	redisClient    redis.UniversalClient
	authService    *auth.AuthService
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// checkOrigin 未配置白名单时只允许同源。
func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsClientMessage struct {
	Type        string   `json:"type"`
	Token       string   `json:"token,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
}

// eventFilter 决定一条事件是否推给当前连接。
type eventFilter struct {
	origin  string
	watched map[string]bool
}

func (f *eventFilter) watch(ids []string) {
	if len(ids) == 0 {
		f.watched = nil
		return
	}
	f.watched = make(map[string]bool, len(ids))
	for _, id := range ids {
		f.watched[id] = true
	}
}

func (f *eventFilter) accept(ev cache.Event) bool {
	if f.origin != "" && ev.Origin == f.origin {
		return false
	}
	if f.watched != nil && !f.watched[ev.DocumentID] {
		return false
	}
	return true
}

// HandleConnection 升级连接、完成认证，然后由当前 goroutine 独占写端。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, filter, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	watchCh := make(chan []string, 1)
	readErr := make(chan error, 1)
	go h.readLoop(ctx, conn, watchCh, readErr)

	err = h.forward(ctx, conn, userID, filter, watchCh, readErr, log)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

func (h *WsHandler) authenticate(conn *websocket.Conn) (uint, *eventFilter, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg wsClientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, nil, fmt.Errorf("read auth message: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, nil, errors.New("first message is not auth")
	}
	claims, err := h.authService.ValidateAccessToken(msg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return 0, nil, fmt.Errorf("validate token: %w", err)
	}
	return claims.UserID, &eventFilter{origin: msg.Origin}, nil
}

// readLoop 只解析 watch 消息，其它类型忽略；读错误意味着连接结束。
func (h *WsHandler) readLoop(ctx context.Context, conn *websocket.Conn, watchCh chan<- []string, errCh chan<- error) {
	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			errCh <- err
			return
		}
		if msg.Type != "watch" {
			continue
		}
		ids := msg.DocumentIDs
		if len(ids) > wsMaxWatched {
			ids = ids[:wsMaxWatched]
		}
		select {
		case watchCh <- ids:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WsHandler) forward(
	ctx context.Context,
	conn *websocket.Conn,
	userID uint,
	filter *eventFilter,
	watchCh <-chan []string,
	readErr <-chan error,
	log *slog.Logger,
) error {
	channel := cache.EventChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()
	log.Debug("subscribed to document events", slog.String("channel", channel))

	events := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case ids := <-watchCh:
			filter.watch(ids)
			log.Debug("watch set updated", slog.Int("documents", len(ids)))
		case msg, ok := <-events:
			if !ok {
				return errors.New("event subscription closed")
			}
			var ev cache.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn("drop malformed document event", slog.Any("error", err))
				continue
			}
			if !filter.accept(ev) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

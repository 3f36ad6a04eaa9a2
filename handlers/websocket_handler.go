package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/middleware"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	upgrader websocket.Upgrader
}

// allowedOrigins - тот же список, что и для CORS. "*" разрешает любой Origin.
func NewWebSocketHandler(hub *brackets.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		// без явного списка пускаем только тот же хост
		u, err := url.Parse(origin)
		return err == nil && len(allowed) == 0 && strings.EqualFold(u.Host, r.Host)
	}
}

// ServeWs подключает клиента к ленте событий сетки. Лента публичная и только на чтение.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	client := brackets.NewClient(h.hub, conn)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	logger.Debug("bracket feed client connected", "remote_addr", r.RemoteAddr)
}

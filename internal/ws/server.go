package ws

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/proconnect/messaging-service/internal/auth"
	"github.com/proconnect/messaging-service/internal/config"
	"github.com/proconnect/messaging-service/internal/hub"
)

// Server owns the upgrade path: GET /ws?token=<jwt>. The token is optional;
// an absent or invalid one degrades the connection to anonymous instead of
// rejecting it, so unauthenticated clients can still receive broadcasts.
type Server struct {
	relay     *Relay
	jwtSecret string
	cfg       *config.Config
	log       *zap.SugaredLogger
}

func NewServer(relay *Relay, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{relay: relay, jwtSecret: cfg.App.JWTSecret, cfg: cfg, log: log}
}

func (s *Server) Handle() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		userID := ""
		if token := conn.Query("token"); token != "" {
			uid, err := auth.Validate(s.jwtSecret, token)
			if err != nil {
				s.log.Debugw("socket auth failed, continuing anonymous", "error", err)
			} else {
				userID = uid
			}
		}

		client := hub.NewClient(uuid.NewString(), userID)
		ctx := context.Background()
		s.relay.ClientConnected(ctx, client)

		go s.writePump(conn, client)
		s.readPump(conn, client)

		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.relay.ClientDisconnected(dctx, client)
		cancel()
		client.Close()
	}
}

func (s *Server) readPump(conn *websocket.Conn, client *hub.Client) {
	conn.SetReadLimit(s.cfg.WS.MaxMessageSizeBytes)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	})

	limiter := rate.NewLimiter(rate.Limit(s.cfg.WS.EventsPerSecond), s.cfg.WS.EventBurst)
	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.relay.Dispatch(ctx, client, raw)
		cancel()
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Outbox():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteDeadline))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

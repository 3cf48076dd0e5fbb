package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to WebSocket connections and hands them to
// the hub.
type Server struct {
	hub      *Hub
	session  *Session
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// ServerConfig holds WebSocket server configuration.
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns default WebSocket server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// The list is shared by design; there is no per-user state to
			// protect, so all origins are accepted.
			return true
		},
	}
}

// NewServer creates a new WebSocket server.
func NewServer(hub *Hub, session *Session, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	return &Server{
		hub:     hub,
		session: session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests. Each new connection
// immediately receives the current document and action log.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(s.hub, conn, s.session, s.logger)
	client.Start()
	s.session.SendInitialState(context.Background(), client)

	s.logger.Info("new websocket connection established",
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type sessionRegistry interface {
	AnnouncePlayer(connectionID, name string) (*entity.Player, error)
	AttemptMatch(connectionID string) (*usecase.MatchResult, error)
	ChooseBoardSize(sessionID, connectionID string, size int) (*entity.Session, error)
	SubmitMove(connectionID string, row, col int) (*usecase.MoveResult, error)
	RecordChat(sessionID, connectionID, text string) (*usecase.ChatResult, error)
	HandleDisconnect(connectionID string) (*usecase.DisconnectResult, error)
}

type Server struct {
	logger   *slog.Logger
	registry sessionRegistry
	upgrader websocket.Upgrader

	handlers map[string]func(client *Client, message *Message) error

	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	// one per running readPump
	pumps sync.WaitGroup

	httpServer *http.Server
}

func New(logger *slog.Logger, registry sessionRegistry) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]func(*Client, *Message) error),
		clients:  make(map[string]*Client),
	}

	server.handlers[actionAnnounce] = server.handleAnnounce
	server.handlers[actionMatch] = server.handleMatch
	server.handlers[actionBoardSize] = server.handleBoardSize
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionChat] = server.handleChat

	return server
}

func (that *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", that.serveWS)

	return router
}

// Start - starts WebSocket server. It returns nil after Shutdown.
func (that *Server) Start(port string) error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}

	that.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := that.httpServer
	that.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections, closes the live ones and waits until
// every disconnect has reached the registry.
func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	that.closed = true
	srv := that.httpServer
	that.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	that.mu.RLock()
	for _, client := range that.clients {
		_ = client.conn.Close()
	}
	that.mu.RUnlock()

	drained := make(chan struct{})
	go func() {
		that.pumps.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connections were not drained: %w", ctx.Err())
	}
}

func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		id:     pkg.GenerateConnectionID(),
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		server: that,
	}

	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		_ = conn.Close()
		return
	}

	that.clients[client.id] = client
	that.pumps.Add(1)
	that.mu.Unlock()

	log.Info("WebSocket connection established", "connection_id", client.id)

	go client.writePump()
	go client.readPump()
}

func (that *Server) unregister(client *Client) {
	that.mu.Lock()
	if _, ok := that.clients[client.id]; ok {
		delete(that.clients, client.id)
		close(client.send)
	}
	that.mu.Unlock()

	that.handleDisconnect(client)
}

func (that *Server) dispatch(client *Client, data []byte) {
	log := that.logger.With("method", "dispatch", "connection_id", client.id)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Debug("failed to unmarshal message", "error", err)
		that.sendTo(client.id, actionError, ErrorResponse{Error: "malformed message"})
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		that.sendTo(client.id, actionError, ErrorResponse{Action: message.Action, Error: "unknown action"})
		return
	}

	if err := handler(client, &message); err != nil {
		log.Error("error processing message", "action", message.Action, "error", err)
	}
}

// sendTo queues a message for a connection. Messages to a slow or gone connection are dropped.
func (that *Server) sendTo(connectionID, action string, payload any) {
	log := that.logger.With("method", "sendTo", "connection_id", connectionID)

	data, err := marshalMessage(action, payload)
	if err != nil {
		log.Error("failed to marshal response", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	client, ok := that.clients[connectionID]
	if !ok {
		return
	}

	select {
	case client.send <- data:
	default:
		log.Warn("send buffer is full, message dropped", "action", action)
	}
}

func marshalMessage(action string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}

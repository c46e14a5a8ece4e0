package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	PingInterval      time.Duration
	MaxMessageSize    int64
	ReadBufferSize    int
	WriteBufferSize   int
	SendBuffer        int
	MaxProtocolFaults int
	CheckOrigin       func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    4096,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		SendBuffer:        64,
		MaxProtocolFaults: 5,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// MessageHandler receives every inbound frame and the close of every
// connection. Implemented by the gateway Service.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn *Connection, raw []byte)
	ConnectionClosed(ctx context.Context, conn *Connection)
}

// Connection is one WebSocket client. The writer pump is the only
// goroutine that touches the socket for writes; everyone else goes
// through the buffered send channel.
type Connection struct {
	ID          uuid.UUID
	ConnectedAt time.Time

	conn    *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	mu       sync.Mutex
	playerID uuid.UUID
	username string
	rating   int
	authed   bool
	faults   int
	closing  bool
}

// Identity returns the bound player id, and whether AUTHENTICATE has
// happened yet.
func (c *Connection) Identity() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.authed
}

// Profile returns the bound username and rating.
func (c *Connection) Profile() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username, c.rating
}

func (c *Connection) bind(playerID uuid.UUID, username string, rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.username = username
	c.rating = rating
	c.authed = true
}

// fault counts one protocol violation and reports the running total.
func (c *Connection) fault() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults++
	return c.faults
}

// enqueue pushes a frame onto the send buffer without blocking. It
// reports false when the buffer is full, which marks the connection as
// too slow to keep. Frames offered to a closing connection are dropped.
func (c *Connection) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// beginClose closes the send channel so the writer pump flushes whatever
// is queued, sends a close frame, and shuts the socket. Safe to call more
// than once.
func (c *Connection) beginClose() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()
	close(c.send)
}

// ConnectionManager tracks one live connection per authenticated player
// and owns the upgrade path and both pumps.
type ConnectionManager struct {
	mu       sync.RWMutex
	byPlayer map[uuid.UUID]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	baseCtx context.Context
}

// NewConnectionManager creates a connection manager that forwards every
// inbound frame to handler.
func NewConnectionManager(config ConnectionConfig, handler MessageHandler) *ConnectionManager {
	return &ConnectionManager{
		byPlayer: make(map[uuid.UUID]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		handler: handler,
		baseCtx: context.Background(),
	}
}

// Start pins the lifetime context used by connection goroutines.
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.baseCtx = ctx
	log.Info().Msg("connection manager started")
}

// Upgrade turns an HTTP request into a managed WebSocket connection. The
// connection stays anonymous until its first AUTHENTICATE frame.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	socket, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	conn := &Connection{
		ID:          uuid.New(),
		ConnectedAt: time.Now(),
		conn:        socket,
		send:        make(chan []byte, cm.config.SendBuffer),
		manager:     cm,
	}

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.ID.String()).
		Str("remote", r.RemoteAddr).
		Msg("WebSocket connection established")
	return conn, nil
}

// Bind makes conn the player's single live connection. Any previous
// connection for the same player is superseded and closed, which is how
// reconnects take over a session.
func (cm *ConnectionManager) Bind(conn *Connection, playerID uuid.UUID, username string, rating int) {
	conn.bind(playerID, username, rating)

	cm.mu.Lock()
	prev := cm.byPlayer[playerID]
	cm.byPlayer[playerID] = conn
	cm.mu.Unlock()

	if prev != nil && prev != conn {
		log.Info().
			Str("player_id", playerID.String()).
			Str("old_connection_id", prev.ID.String()).
			Msg("superseding previous connection")
		prev.conn.Close()
	}

	log.Debug().
		Str("connection_id", conn.ID.String()).
		Str("player_id", playerID.String()).
		Str("username", username).
		Msg("connection bound to player")
}

// drop removes the connection from the player index if it is still the
// current one for that player.
func (cm *ConnectionManager) drop(conn *Connection) {
	playerID, authed := conn.Identity()
	if !authed {
		return
	}
	cm.mu.Lock()
	if cm.byPlayer[playerID] == conn {
		delete(cm.byPlayer, playerID)
	}
	cm.mu.Unlock()
}

// SendToPlayer delivers one envelope to a player's live connection. The
// push never blocks: a full send buffer closes that connection so a slow
// client cannot stall the caller or anyone else.
func (cm *ConnectionManager) SendToPlayer(playerID uuid.UUID, t MessageType, payload any) {
	cm.mu.RLock()
	conn := cm.byPlayer[playerID]
	cm.mu.RUnlock()
	if conn == nil {
		log.Debug().
			Str("player_id", playerID.String()).
			Str("type", string(t)).
			Msg("no live connection, dropping envelope")
		return
	}
	cm.sendOn(conn, t, payload)
}

// sendOn writes to a specific connection, authenticated or not.
func (cm *ConnectionManager) sendOn(conn *Connection, t MessageType, payload any) {
	frame, err := encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to encode envelope")
		return
	}
	if !conn.enqueue(frame) {
		log.Warn().
			Str("connection_id", conn.ID.String()).
			Str("type", string(t)).
			Msg("send buffer full, closing connection")
		cm.drop(conn)
		conn.conn.Close()
	}
}

// Connected reports whether the player has a live connection.
func (cm *ConnectionManager) Connected(playerID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.byPlayer[playerID] != nil
}

// Count returns the number of authenticated connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.byPlayer)
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID.String()).
					Msg("failed to write frame")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames until the socket dies, handing each one to the
// message handler.
func (c *Connection) readPump() {
	defer func() {
		c.manager.drop(c)
		c.conn.Close()
		c.manager.handler.ConnectionClosed(c.manager.baseCtx, c)
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID.String()).
					Msg("unexpected WebSocket close")
			}
			return
		}
		c.manager.handler.HandleMessage(c.manager.baseCtx, c, raw)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SyncMessage is pushed to a sync client on connection and after every collection change.
type SyncMessage struct {
	Collection string            `json:"collection,omitempty"`
	Session    session.State     `json:"session"`
	View       interface{}       `json:"view"`
	Banners    map[string]string `json:"banners"`
}

type client struct {
	hub       *hub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// hub fans collection changes out to the sync clients.
// Changes are coalesced: a burst of snapshots triggers a single push per collection.
type hub struct {
	s          *Server
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.Mutex
	pending map[string]bool
	wake    chan struct{}
}

func newHub(s *Server) *hub {
	return &hub{
		s:          s,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		pending:    make(map[string]bool),
		wake:       make(chan struct{}, 1),
	}
}

// notify is subscribed to the mirror and never blocks.
func (h *hub) notify(coll string) {
	h.mu.Lock()
	h.pending[coll] = true
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *hub) drain() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	colls := make([]string, 0, len(h.pending))
	for _, coll := range core.AllCollections {
		if h.pending[coll] {
			colls = append(colls, coll)
		}
	}
	h.pending = make(map[string]bool)
	return colls
}

func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.push(c, "")

		case c := <-h.unregister:
			h.drop(c)

		case <-h.wake:
			for _, coll := range h.drain() {
				h.apply(ctx, coll)
			}
		}
	}
}

func (h *hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) apply(ctx context.Context, coll string) {
	switch coll {
	case core.CollUsers:
		h.s.Sessions.Refresh(func(id string) (user.User, error) {
			return h.s.UserSvc.Current(ctx, id)
		})
		h.s.Resolver.Purge(ctx)
	case core.CollMagazines:
		for _, sess := range h.s.Sessions.All() {
			if rd, ok := sess.Reader(); ok {
				if err := rd.Refresh(); err != nil {
					h.s.Logger.Debug(fmt.Sprintf("refreshing reader of session %s: %v", sess.ID, err))
				}
			}
		}
	}

	for c := range h.clients {
		h.push(c, coll)
	}
}

// push sends the current view of the client session. Clients whose session ended,
// or who do not keep up, are dropped.
func (h *hub) push(c *client, coll string) {
	sess, err := h.s.Sessions.Get(c.sessionID)
	if err != nil {
		h.drop(c)
		return
	}
	usr, ok := sess.User()
	if !ok {
		h.drop(c)
		return
	}
	st := sess.State()
	data, err := json.Marshal(SyncMessage{
		Collection: coll,
		Session:    st,
		View:       h.s.DashboardSvc.View(usr, st.View == session.ViewDashboard),
		Banners:    h.s.Store.Banners(),
	})
	if err != nil {
		h.s.Logger.Error(fmt.Sprintf("encoding sync message: %v", err), err, usr)
		return
	}

	select {
	case c.send <- data:
	default:
		h.drop(c)
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.s.Logger.Debug(fmt.Sprintf("sync client %s: %v", c.sessionID, err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func registerSyncAPI(g *echo.Group, s *Server) {
	// browsers cannot set headers on websocket requests
	conf := s.jwtConfig
	conf.TokenLookup = "query:token"
	g.GET("/sync", s.serveSync, middleware.JWTWithConfig(conf), s.sessionMiddleware)
}

func (s *Server) serveSync(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		return nil
	}

	c := &client{
		hub:       s.hub,
		conn:      conn,
		sessionID: sess.ID,
		send:      make(chan []byte, 16),
	}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		return conn.Close()
	}

	go c.writePump()
	go c.readPump()
	return nil
}

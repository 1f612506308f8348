// Package monitor optionally serves live numeric telemetry over a websocket,
// for an operator watching a long-running benchmark. It never renders a
// grid, heatmap, or animation, only the {step, alive_cells, elapsed} values
// a driver emits once per snapshot cadence, pushed through a ticker-throttled
// publish loop with ping/pong liveness checking, all coordinated by one
// errgroup.Group per connected client.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"stencil/simulate"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrPongDeadlineExceeded signals the peer stopped responding to pings.
var ErrPongDeadlineExceeded = errors.New("monitor: client disconnect, pong deadline exceeded")

// Server pushes simulate.Telemetry values to a single connected client.
type Server struct {
	router  *mux.Router
	updates <-chan simulate.Telemetry
}

// NewServer builds a monitor that relays updates to whichever client
// connects to /telemetry.
func NewServer(updates <-chan simulate.Telemetry) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		updates: updates,
	}
	s.router.HandleFunc("/telemetry", s.serveTelemetry)
	s.router.HandleFunc("/healthz", s.serveHealthz).Methods(http.MethodGet)
	return s
}

// ListenAndServe blocks serving the monitor's routes on addr.
func (s *Server) ListenAndServe(addr string) error {
	if err := http.ListenAndServe(addr, s.router); err != nil {
		return fmt.Errorf("monitor: serve: %w", err)
	}
	return nil
}

func (s *Server) serveHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// serveTelemetry upgrades the connection and republishes s.updates to it
// until the client disconnects or the run ends.
func (s *Server) serveTelemetry(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer closeSocket(ws)

	c := &client{ws: ws, updates: s.updates, rootCtx: r.Context()}
	if err := c.sync(); err != nil && !isClosure(err) {
		fmt.Printf("monitor: client session ended: %v\n", err)
	}
}

// client runs the read/ping/publish routines for one connected websocket.
type client struct {
	ws      *websocket.Conn
	updates <-chan simulate.Telemetry
	rootCtx context.Context
}

func (c *client) sync() error {
	group, groupCtx := errgroup.WithContext(c.rootCtx)
	group.Go(func() error { return c.readMessages(groupCtx) })
	group.Go(func() error { return c.pingPong(groupCtx) })
	group.Go(func() error { return c.publish(groupCtx) })
	return group.Wait()
}

func (c *client) readMessages(ctx context.Context) error {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (c *client) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	c.ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("monitor: ping: %w", err)
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (c *client) publish(ctx context.Context) error {
	lastSync := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-c.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("monitor: set write deadline: %w", err)
			}
			if err := c.ws.WriteJSON(wireTelemetry{
				Step:       t.Step,
				AliveCells: t.AliveCells,
				Elapsed:    t.Elapsed.Seconds(),
			}); err != nil {
				return fmt.Errorf("monitor: publish: %w", err)
			}
		}
	}
}

// wireTelemetry is the JSON shape pushed to clients: numeric fields only.
type wireTelemetry struct {
	Step       int     `json:"step"`
	AliveCells int     `json:"alive_cells"`
	Elapsed    float64 `json:"elapsed"`
}

func closeSocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

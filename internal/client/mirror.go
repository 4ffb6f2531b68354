package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"buildpos/internal/dto"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Mirror is the terminal's connection to the realtime channel. It is an
// explicitly constructed, owned object with a connect/close lifecycle — no
// package-level socket singleton.
//
// Frames received here are invalidation hints, never durable writes: the
// terminal applies an embedded snapshot only if its versions are at least as
// new as the local ones, and otherwise re-fetches from the store.
type Mirror struct {
	url     string
	token   func() string
	onFrame func(dto.MirrorFrame)
	// onResync fires after every (re)connect; buffered frames may have been
	// lost while disconnected, so the terminal must do a full GET resync.
	onResync func()

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// MirrorConfig wires the mirror's callbacks.
type MirrorConfig struct {
	// OnFrame is invoked for every received snapshot frame.
	OnFrame func(dto.MirrorFrame)
	// OnResync is invoked after every successful (re)connect.
	OnResync func()
}

// NewMirror prepares a mirror client against the store's /v1/mirror endpoint.
// Call Run to connect.
func NewMirror(store *Store, cfg MirrorConfig) *Mirror {
	wsURL := strings.Replace(store.BaseURL(), "http", "ws", 1) + "/v1/mirror"
	return &Mirror{
		url:      wsURL,
		token:    store.Token,
		onFrame:  cfg.OnFrame,
		onResync: cfg.OnResync,
		done:     make(chan struct{}),
	}
}

// Run connects and pumps frames until Close is called, reconnecting with
// backoff after any drop. Start it in its own goroutine.
func (m *Mirror) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, err := m.dial(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("mirror: connect failed, retrying")
			m.wait(ctx, backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		if m.onResync != nil {
			m.onResync()
		}

		m.readPump(conn)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
	}
}

// Emit broadcasts a post-commit snapshot to the other terminals. Best
// effort: the store write already committed, so a broken mirror connection
// only delays peers until their next resync.
func (m *Mirror) Emit(frame dto.MirrorFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	return m.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down and stops the reconnect loop.
func (m *Mirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *Mirror) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if tok := m.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (m *Mirror) readPump(conn *websocket.Conn) {
	defer conn.Close()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.done:
			default:
				log.Warn().Err(err).Msg("mirror: connection dropped")
			}
			return
		}
		if msgType != websocket.TextMessage || m.onFrame == nil {
			continue
		}

		var frame dto.MirrorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn().Err(err).Msg("mirror: malformed frame skipped")
			continue
		}
		m.onFrame(frame)
	}
}

func (m *Mirror) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-m.done:
	case <-ctx.Done():
	}
}

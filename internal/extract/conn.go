package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
)

// DefaultSocketEndpoint is the resolver socket used when none is configured.
const DefaultSocketEndpoint = "wss://wsx.dokicloud.one/socket.io/?EIO=4&transport=websocket"

// closeNoStatus is sent once the result has arrived. It has no status body
// on the wire.
const closeNoStatus = websocket.CloseNoStatusReceived

// closeAbandoned is sent when the deadline passes or the caller gives up.
const closeAbandoned = websocket.CloseNormalClosure

// Conn is a text-frame connection to the resolver.
type Conn interface {
	Read() (string, error)
	Write(frame string) error
	// Close sends a close frame with code and reason, then releases the
	// connection and unblocks a pending Read. It is safe to call more than
	// once and from any goroutine.
	Close(code int, reason string) error
}

// Dialer opens a Conn to a resolver endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WSDialer dials the resolver with gorilla/websocket.
type WSDialer struct {
	Origin           string
	HandshakeTimeout time.Duration
}

func (d *WSDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	u, err := SocketURL(endpoint)
	if err != nil {
		return nil, err
	}

	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	header := http.Header{}
	header.Set("User-Agent", httputil.UserAgent)
	if d.Origin != "" {
		header.Set("Origin", d.Origin)
	}

	c, resp, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return &wsConn{c: c}, nil
}

// SocketURL adds the engine.io query parameters to endpoint when missing.
func SocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing socket endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported socket scheme %q", u.Scheme)
	}

	q := u.Query()
	if q.Get("EIO") == "" {
		q.Set("EIO", "4")
	}
	if q.Get("transport") == "" {
		q.Set("transport", "websocket")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type wsConn struct {
	c       *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
	err     error
}

func (w *wsConn) Read() (string, error) {
	for {
		typ, data, err := w.c.ReadMessage()
		if err != nil {
			return "", err
		}
		if typ == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (w *wsConn) Write(frame string) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.c.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (w *wsConn) Close(code int, reason string) error {
	w.once.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		w.err = w.c.Close()
	})
	return w.err
}

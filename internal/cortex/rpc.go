package cortex

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// RPCError is an error object returned by the service.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("cortex error %d: %s", e.Code, e.Message)
}

// IsCode reports whether err is an RPCError with the given code.
func IsCode(err error, code int) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type warning struct {
	Code    int             `json:"code"`
	Message json.RawMessage `json:"message"`
}

// inbound is any message from the service: a response (ID set), a stream
// sample (SID set) or a warning.
type inbound struct {
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	SID     string          `json:"sid"`
	Time    float64         `json:"time"`
	Com     json.RawMessage `json:"com"`
	Warning *warning        `json:"warning"`
}

var errConnClosed = errors.New("cortex: connection closed")

// rpcConn multiplexes requests and stream data over one websocket.
type rpcConn struct {
	ws      *websocket.Conn
	log     *zap.Logger
	timeout time.Duration

	writeMu sync.Mutex
	nextID  atomic.Int64
	pending *xsync.MapOf[int64, chan inbound]

	onStream  func(in inbound)
	onWarning func(w warning)

	done    chan struct{}
	errOnce sync.Once
	err     error
}

func dial(ctx context.Context, cfg Config, logger *zap.Logger) (*rpcConn, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	if cfg.InsecureSkipVerify {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	ws, _, err := d.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	return &rpcConn{
		ws:      ws,
		log:     logger,
		timeout: cfg.CallTimeout,
		pending: xsync.NewMapOf[int64, chan inbound](),
		done:    make(chan struct{}),
	}, nil
}

// readLoop dispatches inbound messages until the socket fails or closes.
func (c *rpcConn) readLoop() {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.log.Debug("skipping malformed message", zap.Error(err))
			continue
		}

		switch {
		case in.ID != nil:
			if ch, ok := c.pending.LoadAndDelete(*in.ID); ok {
				ch <- in
			}
		case in.Com != nil:
			if c.onStream != nil {
				c.onStream(in)
			}
		case in.Warning != nil:
			if c.onWarning != nil {
				c.onWarning(*in.Warning)
			}
		}
	}
}

func (c *rpcConn) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}

// call sends method and decodes the result into out, which may be nil.
func (c *rpcConn) call(ctx context.Context, method string, params any, out any) error {
	id := c.nextID.Inc()
	ch := make(chan inbound, 1)
	c.pending.Store(id, ch)
	defer c.pending.Delete(id)

	c.writeMu.Lock()
	err := c.ws.WriteJSON(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: write: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case in := <-ch:
		if in.Error != nil {
			return fmt.Errorf("%s: %w", method, in.Error)
		}
		if out != nil && len(in.Result) > 0 {
			if err := json.Unmarshal(in.Result, out); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("%s: %w", method, errConnClosed)
	case <-timer.C:
		return fmt.Errorf("%s: no response after %s", method, c.timeout)
	}
}

func (c *rpcConn) close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.ws.Close()
	c.fail(errConnClosed)
	return err
}

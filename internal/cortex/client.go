package cortex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
)

// Headset is one entry of queryHeadsets.
type Headset struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Profile is one entry of queryProfile.
type Profile struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Client runs one Cortex session. A Client is single use: Run while running
// is a logged no-op and Run after it returned yields runstate.ErrStopped.
type Client struct {
	cfg     Config
	handler Handler
	log     *zap.Logger
	now     func() time.Time

	// headsetRetry is the wait between connection checks of a headset that
	// is discovered but not yet connected.
	headsetRetry time.Duration

	state runstate.Machine

	mu      sync.Mutex
	token   string
	session string
	headset string
}

// NewClient creates a Client delivering events to h.
func NewClient(cfg Config, h Handler, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:          cfg.withDefaults(),
		handler:      h,
		log:          logger,
		now:          time.Now,
		headsetRetry: time.Second,
	}
}

// State returns the session run state.
func (c *Client) State() runstate.State {
	return c.state.Load()
}

// SessionID returns the active session id, empty before createSession.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Run connects, negotiates the session and streams events until ctx ends or
// the connection drops. A clean shutdown (ctx done) returns nil.
func (c *Client) Run(ctx context.Context) error {
	started, err := c.state.Start()
	if err != nil {
		return err
	}
	if !started {
		c.log.Info("cortex session already started")
		return nil
	}
	defer c.state.Stop()

	conn, err := dial(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	conn.onStream = c.handleStream
	conn.onWarning = c.handleWarning
	go conn.readLoop()
	defer conn.close()

	if err := c.setup(ctx, conn); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		c.teardown(conn)
		return nil
	case <-conn.done:
		return fmt.Errorf("cortex connection lost: %w", conn.err)
	}
}

func (c *Client) setup(ctx context.Context, conn *rpcConn) error {
	token, err := c.authorize(ctx, conn)
	if err != nil {
		return err
	}

	headset, err := c.pickHeadset(ctx, conn, token)
	if err != nil {
		return err
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := conn.call(ctx, "createSession", map[string]any{
		"cortexToken": token,
		"headset":     headset,
		"status":      "active",
	}, &session); err != nil {
		return err
	}

	c.mu.Lock()
	c.token, c.session, c.headset = token, session.ID, headset
	c.mu.Unlock()

	c.log.Info("session created", zap.String("session", session.ID), zap.String("headset", headset))
	c.handler.OnSessionReady(session.ID)

	if err := c.loadProfile(ctx, conn, token, headset); err != nil {
		if IsCode(err, ErrCodeProfileAccessDenied) {
			c.log.Error("profile access denied, disconnecting headset", zap.String("profile", c.cfg.Profile), zap.Error(err))
			c.disconnectHeadset(ctx, conn, headset)
		}
		return err
	}
	c.log.Info("profile loaded", zap.String("profile", c.cfg.Profile))
	c.handler.OnProfileReady(c.cfg.Profile)

	if len(c.cfg.Sensitivity) > 0 {
		if err := conn.call(ctx, "mentalCommandActionSensitivity", map[string]any{
			"cortexToken": token,
			"profile":     c.cfg.Profile,
			"status":      "set",
			"values":      c.cfg.Sensitivity,
		}, nil); err != nil {
			// The profile keeps its trained sensitivity; not worth aborting.
			c.log.Warn("failed to set sensitivity", zap.Ints("values", c.cfg.Sensitivity), zap.Error(err))
		} else {
			c.log.Info("sensitivity set", zap.Ints("values", c.cfg.Sensitivity))
		}
	}

	var sub struct {
		Success []struct {
			StreamName string   `json:"streamName"`
			Cols       []string `json:"cols"`
		} `json:"success"`
		Failure []struct {
			StreamName string `json:"streamName"`
			Code       int    `json:"code"`
			Message    string `json:"message"`
		} `json:"failure"`
	}
	if err := conn.call(ctx, "subscribe", map[string]any{
		"cortexToken": token,
		"session":     session.ID,
		"streams":     c.cfg.Streams,
	}, &sub); err != nil {
		return err
	}
	if len(sub.Failure) > 0 {
		f := sub.Failure[0]
		return fmt.Errorf("subscribe %s: %w", f.StreamName, &RPCError{Code: f.Code, Message: f.Message})
	}
	for _, s := range sub.Success {
		c.log.Info("subscribed", zap.String("stream", s.StreamName), zap.Strings("cols", s.Cols))
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, conn *rpcConn) (string, error) {
	creds := map[string]any{
		"clientId":     c.cfg.ClientID,
		"clientSecret": c.cfg.ClientSecret,
	}

	var access struct {
		AccessGranted bool   `json:"accessGranted"`
		Message       string `json:"message"`
	}
	if err := conn.call(ctx, "requestAccess", creds, &access); err != nil {
		return "", err
	}
	if !access.AccessGranted {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, access.Message)
	}

	var auth struct {
		CortexToken string `json:"cortexToken"`
	}
	if err := conn.call(ctx, "authorize", creds, &auth); err != nil {
		return "", err
	}
	c.log.Debug("authorized")
	return auth.CortexToken, nil
}

// pickHeadset returns the wanted headset, or the first connected one, asking
// the service to connect a discovered headset when needed.
func (c *Client) pickHeadset(ctx context.Context, conn *rpcConn, token string) (string, error) {
	const attempts = 5
	requested := false

	for i := 0; i < attempts; i++ {
		var headsets []Headset
		if err := conn.call(ctx, "queryHeadsets", map[string]any{}, &headsets); err != nil {
			return "", err
		}

		h, ok := chooseHeadset(headsets, c.cfg.Headset)
		if !ok {
			return "", ErrNoHeadset
		}
		if h.Status == "connected" {
			return h.ID, nil
		}

		if !requested {
			c.log.Info("connecting headset", zap.String("headset", h.ID), zap.String("status", h.Status))
			if err := conn.call(ctx, "controlDevice", map[string]any{
				"command": "connect",
				"headset": h.ID,
			}, nil); err != nil {
				return "", err
			}
			requested = true
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.headsetRetry):
		}
	}
	return "", fmt.Errorf("%w: headset did not connect", ErrNoHeadset)
}

func chooseHeadset(headsets []Headset, wanted string) (Headset, bool) {
	if wanted != "" {
		for _, h := range headsets {
			if h.ID == wanted {
				return h, true
			}
		}
		return Headset{}, false
	}
	for _, h := range headsets {
		if h.Status == "connected" {
			return h, true
		}
	}
	if len(headsets) > 0 {
		return headsets[0], true
	}
	return Headset{}, false
}

func (c *Client) loadProfile(ctx context.Context, conn *rpcConn, token, headset string) error {
	profiles, err := queryProfiles(ctx, conn, token)
	if err != nil {
		return err
	}

	if !hasProfile(profiles, c.cfg.Profile) {
		c.log.Info("profile not found, creating", zap.String("profile", c.cfg.Profile))
		if err := c.setupProfile(ctx, conn, token, headset, "create"); err != nil {
			return err
		}
	}
	return c.setupProfile(ctx, conn, token, headset, "load")
}

func (c *Client) setupProfile(ctx context.Context, conn *rpcConn, token, headset, status string) error {
	return conn.call(ctx, "setupProfile", map[string]any{
		"cortexToken": token,
		"headset":     headset,
		"profile":     c.cfg.Profile,
		"status":      status,
	}, nil)
}

func queryProfiles(ctx context.Context, conn *rpcConn, token string) ([]Profile, error) {
	var profiles []Profile
	err := conn.call(ctx, "queryProfile", map[string]any{"cortexToken": token}, &profiles)
	return profiles, err
}

func hasProfile(profiles []Profile, name string) bool {
	for _, p := range profiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (c *Client) disconnectHeadset(ctx context.Context, conn *rpcConn, headset string) {
	if err := conn.call(ctx, "controlDevice", map[string]any{
		"command": "disconnect",
		"headset": headset,
	}, nil); err != nil {
		c.log.Warn("failed to disconnect headset", zap.String("headset", headset), zap.Error(err))
	}
}

// teardown closes the session on a fresh context; ctx is already done.
func (c *Client) teardown(conn *rpcConn) {
	c.mu.Lock()
	token, session := c.token, c.session
	c.mu.Unlock()
	if session == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.call(ctx, "updateSession", map[string]any{
		"cortexToken": token,
		"session":     session,
		"status":      "close",
	}, nil); err != nil && !errors.Is(err, errConnClosed) {
		c.log.Warn("failed to close session", zap.String("session", session), zap.Error(err))
		return
	}
	c.log.Info("session closed", zap.String("session", session))
}

func (c *Client) handleStream(in inbound) {
	label, power, err := decodeCom(in.Com)
	if err != nil {
		c.log.Debug("skipping com sample", zap.Error(err))
		return
	}
	ts := sampleTime(in.Time)
	if ts.IsZero() {
		ts = c.now()
	}
	c.handler.OnCommand(logic.NewCommandEvent(label, power, ts))
}

func (c *Client) handleWarning(w warning) {
	c.log.Warn("cortex warning", zap.Int("code", w.Code), zap.ByteString("message", w.Message))
}

// ProbeResult reports what an environment check found.
type ProbeResult struct {
	Headsets     []Headset
	Profiles     []Profile
	ProfileFound bool
}

// Probe connects, authorizes and lists headsets and profiles without opening
// a session. It backs the check command.
func Probe(ctx context.Context, cfg Config, logger *zap.Logger) (ProbeResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := NewClient(cfg, nil, logger)

	conn, err := dial(ctx, c.cfg, logger)
	if err != nil {
		return ProbeResult{}, err
	}
	go conn.readLoop()
	defer conn.close()

	token, err := c.authorize(ctx, conn)
	if err != nil {
		return ProbeResult{}, err
	}

	var res ProbeResult
	if err := conn.call(ctx, "queryHeadsets", map[string]any{}, &res.Headsets); err != nil {
		return res, err
	}
	if res.Profiles, err = queryProfiles(ctx, conn, token); err != nil {
		return res, err
	}
	res.ProfileFound = hasProfile(res.Profiles, c.cfg.Profile)
	return res, nil
}

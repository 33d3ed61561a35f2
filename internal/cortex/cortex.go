// Package cortex is the mental-command event source. It speaks the Emotiv
// Cortex JSON-RPC API over a websocket: it authorizes the application, opens a
// session on a headset, loads the training profile and subscribes to the
// "com" stream. Every stream sample is handed to a Handler as a
// logic.CommandEvent.
package cortex

import (
	"context"
	"errors"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// DefaultURL is where the Cortex service listens on the local machine.
const DefaultURL = "wss://localhost:6868"

// Cortex error codes the client reacts to.
const (
	ErrCodeProfileAccessDenied = -32046
)

var (
	// ErrAccessDenied is returned when the user has not approved the
	// application in the Emotiv Launcher.
	ErrAccessDenied = errors.New("cortex: access not granted")

	// ErrNoHeadset is returned when no usable headset is connected.
	ErrNoHeadset = errors.New("cortex: no headset connected")
)

// Handler receives the event-source callbacks. Calls arrive on the reader
// goroutine, in order; OnCommand must return quickly.
type Handler interface {
	// OnSessionReady fires once the headset session exists.
	OnSessionReady(sessionID string)
	// OnProfileReady fires once the training profile is loaded.
	OnProfileReady(profile string)
	// OnCommand delivers one classified sample.
	OnCommand(ev logic.CommandEvent)
}

// Source produces command events until ctx ends.
type Source interface {
	Run(ctx context.Context) error
}

// Config holds the connection and session settings.
type Config struct {
	URL          string
	ClientID     string
	ClientSecret string
	Profile      string
	Headset      string   // optional; first connected headset when empty
	Streams      []string // defaults to ["com"]
	Sensitivity  []int    // optional; 4 values applied after the profile loads

	// InsecureSkipVerify disables TLS verification for the local service.
	InsecureSkipVerify bool
	// CallTimeout bounds each request. Zero means DefaultCallTimeout.
	CallTimeout time.Duration
}

// DefaultCallTimeout bounds a single JSON-RPC request.
const DefaultCallTimeout = 10 * time.Second

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if len(c.Streams) == 0 {
		c.Streams = []string{"com"}
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

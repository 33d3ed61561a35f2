package control

import (
	"time"

	"go.uber.org/atomic"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// Defaults for the actuation knobs.
const (
	DefaultTickInterval     = 10 * time.Millisecond
	DefaultPixelsPerTick    = 10
	DefaultActionThreshold  = 0.5
	DefaultMovementCooldown = 3 * time.Second
)

// Settings are the runtime-tunable actuation knobs. They can be swapped while
// the loop runs; each tick reads them once.
type Settings struct {
	Interpreter logic.Interpreter
	// Cooldown is the debounce window after human pointer movement.
	Cooldown time.Duration
}

// DefaultSettings returns the defaults: fixed threshold 0.5, 10px steps scaled
// by power, 3s cooldown.
func DefaultSettings() Settings {
	return Settings{
		Interpreter: logic.Interpreter{
			ActionThreshold: DefaultActionThreshold,
			PixelsPerTick:   DefaultPixelsPerTick,
			Proportional:    true,
		},
		Cooldown: DefaultMovementCooldown,
	}
}

// SettingsStore is an atomically swappable Settings value.
type SettingsStore struct {
	v *atomic.Pointer[Settings]
}

// NewSettingsStore creates a store holding s.
func NewSettingsStore(s Settings) *SettingsStore {
	return &SettingsStore{v: atomic.NewPointer(&s)}
}

// Load returns the current settings.
func (s *SettingsStore) Load() Settings {
	return *s.v.Load()
}

// Store replaces the settings.
func (s *SettingsStore) Store(v Settings) {
	s.v.Store(&v)
}

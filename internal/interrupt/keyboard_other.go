//go:build !linux

package interrupt

import "context"

// Keyboard is not available on non-Linux platforms.
type Keyboard struct{}

// OpenKeyboard returns ErrUnsupported on non-Linux platforms.
func OpenKeyboard(path string) (*Keyboard, error) {
	return nil, ErrUnsupported
}

// Wait returns ErrUnsupported.
func (k *Keyboard) Wait(ctx context.Context) error {
	return ErrUnsupported
}

// Close does nothing.
func (k *Keyboard) Close() error {
	return nil
}

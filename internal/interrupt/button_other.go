//go:build !linux

package interrupt

// OpenButton returns ErrUnsupported on non-Linux platforms.
func OpenButton(chip string, line int) (*Button, error) {
	return nil, ErrUnsupported
}

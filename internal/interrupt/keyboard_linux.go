//go:build linux

package interrupt

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// epoll wait timeout, so ctx is checked a few times a second.
const keyboardPollMillis = 100

// Keyboard watches an evdev device for an ESC key press. The raw fd is used
// directly: os.File would switch it back to blocking mode.
type Keyboard struct {
	path string
	fd   int
	epfd int
}

// OpenKeyboard opens the input device at path. Reading it normally requires
// membership of the input group.
func OpenKeyboard(path string) (*Keyboard, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		return nil, fmt.Errorf("epoll_ctl_add %s: %w", path, err)
	}

	return &Keyboard{path: path, fd: fd, epfd: epfd}, nil
}

// Wait blocks until ESC is pressed or ctx ends.
func (k *Keyboard) Wait(ctx context.Context) error {
	events := make([]unix.EpollEvent, 1)
	buf := make([]byte, inputEventSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.EpollWait(k.epfd, events, keyboardPollMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}
		if events[0].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			return fmt.Errorf("input device error/hangup: %s", k.path)
		}

		// Drain everything queued; evdev hands out whole records per read.
		for {
			n, err := unix.Read(k.fd, buf)
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", k.path, err)
			}
			if n != inputEventSize {
				continue
			}
			ev, err := decodeEvent(buf)
			if err != nil {
				continue
			}
			if ev.escPressed() {
				return nil
			}
		}
	}
}

// Close releases the device.
func (k *Keyboard) Close() error {
	unix.Close(k.epfd)
	return unix.Close(k.fd)
}

package interrupt

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Linux input constants from linux/input-event-codes.h.
const (
	evKey  = 0x01
	keyEsc = 1

	keyPressed = 1
)

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

func (ev inputEvent) escPressed() bool {
	return ev.Type == evKey && ev.Code == keyEsc && ev.Value == keyPressed
}

// decodeEvent parses one raw input_event record.
func decodeEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev)
	return ev, err
}

// scanForEsc reads whole input_event records from r until an ESC press is
// seen (true, nil) or r fails. Malformed records are skipped.
func scanForEsc(r io.Reader) (bool, error) {
	buf := make([]byte, inputEventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return false, err
		}
		ev, err := decodeEvent(buf)
		if err != nil {
			continue
		}
		if ev.escPressed() {
			return true, nil
		}
	}
}

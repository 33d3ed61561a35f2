package interrupt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func encode(t *testing.T, evs ...inputEvent) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range evs {
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestInputEventSize(t *testing.T) {
	if inputEventSize != 24 {
		t.Errorf("input_event size: expected 24, got %d", inputEventSize)
	}
}

func TestScanForEscFindsPress(t *testing.T) {
	r := encode(t,
		inputEvent{Type: evKey, Code: 30, Value: keyPressed}, // 'a'
		inputEvent{Type: 0, Code: 0, Value: 0},               // SYN
		inputEvent{Type: evKey, Code: keyEsc, Value: keyPressed},
	)

	found, err := scanForEsc(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected ESC press to be found")
	}
}

func TestScanForEscIgnoresReleaseAndRepeat(t *testing.T) {
	r := encode(t,
		inputEvent{Type: evKey, Code: keyEsc, Value: 0}, // release
		inputEvent{Type: evKey, Code: keyEsc, Value: 2}, // autorepeat
	)

	found, err := scanForEsc(r)
	if found {
		t.Error("release/repeat must not count as a press")
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestScanForEscTruncated(t *testing.T) {
	r := bytes.NewReader(make([]byte, inputEventSize-4))
	_, err := scanForEsc(r)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecodeEvent(t *testing.T) {
	want := inputEvent{Sec: 1700000000, Usec: 42, Type: evKey, Code: keyEsc, Value: keyPressed}
	got, err := decodeEvent(encode(t, want).Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !got.escPressed() {
		t.Error("expected escPressed")
	}
}

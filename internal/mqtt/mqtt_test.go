package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func moveActuation() control.Actuation {
	return control.Actuation{
		Command: control.Command{Label: logic.LabelLeft, Raw: "left", Power: 0.9, Timestamp: ts, Seq: 7},
		Intent:  logic.Move(-9, 0),
		From:    pointer.Point{X: 500, Y: 300},
		To:      pointer.Point{X: 491, Y: 300},
		At:      ts.Add(10 * time.Millisecond),
	}
}

func TestFormatIntentPayloadMove(t *testing.T) {
	payload, err := FormatIntentPayload(moveActuation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed IntentPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	in := parsed.Intent
	if in.Timestamp != "2026-02-02T22:18:12.01Z" {
		t.Errorf("unexpected timestamp: %s", in.Timestamp)
	}
	if in.Kind != "MOVE" {
		t.Errorf("kind: got %s, want MOVE", in.Kind)
	}
	if in.DX != -9 || in.DY != 0 {
		t.Errorf("delta: got (%d,%d), want (-9,0)", in.DX, in.DY)
	}
	if in.X != 491 || in.Y != 300 {
		t.Errorf("position: got (%d,%d), want (491,300)", in.X, in.Y)
	}
	if in.Label != "left" {
		t.Errorf("label: got %s, want left", in.Label)
	}
	if in.Seq != 7 {
		t.Errorf("seq: got %d, want 7", in.Seq)
	}
}

func TestFormatIntentPayloadClick(t *testing.T) {
	a := control.Actuation{
		Command: control.Command{Label: logic.LabelPush, Power: 0.9, Seq: 1},
		Intent:  logic.Click,
		From:    pointer.Point{X: 10, Y: 20},
		To:      pointer.Point{X: 10, Y: 20},
		At:      ts,
	}

	payload, err := FormatIntentPayload(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"intent":{"timestamp":"2026-02-02T22:18:12Z","kind":"CLICK","dx":0,"dy":0,"x":10,"y":20,"label":"push","power":0.9,"seq":1}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatStatusPayload(t *testing.T) {
	line := power.StatusLine{
		Timestamp: ts,
		Power:     0.62,
		Average:   0.4,
		Max:       0.8,
		Label:     logic.LabelLift,
		Raw:       "lift",
		Tier:      logic.TierHigh,
	}

	payload, err := FormatStatusPayload(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"status":{"timestamp":"2026-02-02T22:18:12Z","power":0.62,"average":0.4,"max":0.8,"label":"lift","tier":"HIGH"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatStatusPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	line := power.StatusLine{Timestamp: time.Date(2026, 2, 3, 0, 0, 0, 0, loc), Tier: logic.TierLow}

	payload, err := FormatStatusPayload(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed StatusPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Status.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	topics := map[string]string{
		"intents": TopicIntents,
		"status":  TopicStatus,
		"system":  TopicSystem,
	}
	for name, want := range map[string]string{
		"intents": "bci/cursor/intents",
		"status":  "bci/cursor/status",
		"system":  "bci/cursor/system",
	} {
		if topics[name] != want {
			t.Errorf("%s topic: got %s, want %s", name, topics[name], want)
		}
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadAllSignals(t *testing.T) {
	for _, reason := range []string{"SIGINT", "SIGTERM", "MQTT_DISCONNECT", "ESC"} {
		t.Run(reason, func(t *testing.T) {
			payload, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: EventShutdown, Reason: reason})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed SystemPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.System.Reason != reason {
				t.Errorf("reason: got %s, want %s", parsed.System.Reason, reason)
			}
		})
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     EventReconnected,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishActuation(moveActuation()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishStatus(power.StatusLine{Timestamp: ts, Label: logic.LabelLeft}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.Actuations(); len(got) != 1 || got[0].Command.Seq != 7 {
		t.Fatalf("unexpected actuations: %+v", got)
	}
	if got := f.StatusLines(); len(got) != 1 {
		t.Fatalf("expected 1 status line, got %d", len(got))
	}
	if got := f.Payloads(); len(got) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(got))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.SetErrors(errors.New("broker down"), nil)

	if err := f.PublishActuation(moveActuation()); err == nil {
		t.Error("expected error")
	}
	if len(f.Actuations()) != 0 {
		t.Error("failed publish must not be recorded")
	}
	if err := f.PublishSystem(SystemEvent{Event: EventStartup}); err != nil {
		t.Errorf("system publish should still work: %v", err)
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	events := []SystemEvent{
		{Timestamp: ts, Event: EventStartup, Retained: true},
		{Timestamp: ts, Event: EventHeartbeat},
		{Timestamp: ts, Event: EventShutdown, Reason: "SIGINT"},
	}
	for _, ev := range events {
		if err := f.PublishSystem(ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := f.SystemEvents()
	if len(got) != 3 {
		t.Fatalf("expected 3 system events, got %d", len(got))
	}
	for i := range events {
		if got[i].Event != events[i].Event {
			t.Errorf("event %d: got %s, want %s", i, got[i].Event, events[i].Event)
		}
	}
	if !got[0].Retained || got[1].Retained {
		t.Error("retained flag not preserved")
	}
	if len(f.SystemPayloads()) != 3 {
		t.Errorf("expected 3 system payloads, got %d", len(f.SystemPayloads()))
	}
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.SetConnected(true)
	f.PublishActuation(moveActuation())
	f.Close()

	if !f.Closed() {
		t.Error("should be closed after Close()")
	}
	if !f.IsConnected() {
		t.Error("expected connected")
	}

	f.Reset()
	if f.Closed() || f.IsConnected() || len(f.Actuations()) != 0 || len(f.Payloads()) != 0 {
		t.Error("Reset should clear all recorded state")
	}

	// Reusable after reset.
	if err := f.PublishActuation(moveActuation()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Actuations()) != 1 {
		t.Error("expected 1 actuation after reset")
	}
}

func TestPublisherInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher()
	var _ ConnectionStatus = NewFakePublisher()
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}

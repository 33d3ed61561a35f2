package cortex

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// decodeCom parses the "com" array of a stream sample: [label, power].
func decodeCom(raw json.RawMessage) (string, float64, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", 0, fmt.Errorf("com sample: %w", err)
	}
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("com sample: expected [action, power], got %d fields", len(fields))
	}

	var label string
	if err := json.Unmarshal(fields[0], &label); err != nil {
		return "", 0, fmt.Errorf("com action: %w", err)
	}
	var power float64
	if err := json.Unmarshal(fields[1], &power); err != nil {
		return "", 0, fmt.Errorf("com power: %w", err)
	}
	return label, power, nil
}

// sampleTime converts the service timestamp (seconds since the epoch, with a
// fraction) to a time.Time. Zero means the sample had no timestamp.
func sampleTime(sec float64) time.Time {
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}
	}
	whole := math.Floor(sec)
	return time.Unix(int64(whole), int64((sec-whole)*1e9))
}

package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	DefaultSafetyScore    = 100.0
	DefaultTripsCompleted = 100.0
	DefaultFatigueLevel   = 1.0
)

// Features is the classifier input in model order:
// safetyScore, tripsCompleted, fatigueLevel.
type Features [3]float64

func (f Features) Slice() []float64 {
	return []float64{f[0], f[1], f[2]}
}

// Request is a driver risk prediction request. Absent fields take their
// defaults. Values are not range checked.
type Request struct {
	SafetyScore    *float64 `json:"safetyScore,omitempty"`
	TripsCompleted *float64 `json:"tripsCompleted,omitempty"`
	FatigueLevel   *float64 `json:"fatigueLevel,omitempty"`
}

func (r Request) Features() Features {
	return Features{
		valueOr(r.SafetyScore, DefaultSafetyScore),
		valueOr(r.TripsCompleted, DefaultTripsCompleted),
		valueOr(r.FatigueLevel, DefaultFatigueLevel),
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// ValidationError reports a request body that cannot be turned into features.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// DecodeRequest reads a JSON object. An empty body is the same as {} and a
// null field is the same as a missing one. Unknown fields are ignored; a known
// field holding anything but a number is a *ValidationError.
func DecodeRequest(body io.Reader) (Request, error) {
	var req Request
	if body == nil {
		return req, nil
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return req, fmt.Errorf("read request body: %w", err)
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return req, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return req, &ValidationError{Reason: "body must be a JSON object"}
	}

	targets := []struct {
		name string
		dst  **float64
	}{
		{"safetyScore", &req.SafetyScore},
		{"tripsCompleted", &req.TripsCompleted},
		{"fatigueLevel", &req.FatigueLevel},
	}
	for _, target := range targets {
		raw, ok := fields[target.name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			return Request{}, &ValidationError{Field: target.name, Reason: "must be a number"}
		}
		*target.dst = &value
	}
	return req, nil
}

package outbox

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EnvelopeVersion is written into every new envelope. Consumers reject newer versions.
const EnvelopeVersion = 1

// PayloadEnvelope wraps every outbox payload; Data carries the event-specific body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	CustomerID *uuid.UUID      `json:"customerId,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope marshals data and stamps a fresh event id.
func NewEnvelope(occurredAt time.Time, customerID *uuid.UUID, data any) (PayloadEnvelope, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	return PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		CustomerID: customerID,
		Data:       body,
	}, nil
}

// DecodeEnvelope parses a stored payload and rejects envelopes without a body.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version > EnvelopeVersion {
		return env, fmt.Errorf("envelope version %d is newer than %d", env.Version, EnvelopeVersion)
	}
	if body := bytes.TrimSpace(env.Data); len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return env, errors.New("envelope has no data")
	}
	return env, nil
}

// Package envelope decodes the remote API's uniform response wrapper,
// {success, data?, message?}, so callers only ever see the unwrapped data.
package envelope

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxBody caps how much of a response is read. Session payloads are tiny;
// anything larger is not ours to buffer.
const maxBody = 1 << 20

// Envelope is the wire-level response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Decode reads and parses one envelope from r.
func Decode(r io.Reader) (*Envelope, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(raw) == 0 {
		return &Envelope{}, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Unwrap decodes the data payload into v. A nil v discards the payload;
// an absent payload leaves v untouched.
func (e *Envelope) Unwrap(v any) error {
	if v == nil || len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

package hub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"clinic-queue/internal/slots"
)

// Message types on the wire.
const (
	TypeSlots = "slots"
	TypePing  = "ping"
)

var (
	// ErrDecode marks a message that is not a JSON object.
	ErrDecode = errors.New("malformed message")
	// ErrValidation marks a slots message with a missing, non-integer or
	// out-of-range index.
	ErrValidation = errors.New("invalid slot update")
	// ErrIgnored marks a well-formed message of a type the board does not act on.
	ErrIgnored = errors.New("message type ignored")
)

// Message is the server to client payload, used for replay and broadcast.
// Slot is always fully materialized.
type Message struct {
	Type  string     `json:"type"`
	Index int        `json:"index"`
	Slot  slots.Slot `json:"slot"`
}

// Update is a validated client edit.
type Update struct {
	Index  int
	Fields slots.Update
}

// ParseUpdate decodes a client message for a board of count slots. The slot
// object itself is never rejected; see slots.ParseUpdate.
func ParseUpdate(data []byte, count int) (Update, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if env == nil {
		return Update{}, fmt.Errorf("%w: not an object", ErrDecode)
	}

	var typ string
	if raw, ok := env["type"]; ok {
		_ = json.Unmarshal(raw, &typ)
	}
	if typ != TypeSlots {
		return Update{}, fmt.Errorf("%w: %q", ErrIgnored, typ)
	}

	index, err := parseIndex(env["index"])
	if err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if index < 0 || index >= count {
		return Update{}, fmt.Errorf("%w: index %d not in [0, %d)", ErrValidation, index, count)
	}

	return Update{Index: index, Fields: slots.ParseUpdate(env["slot"])}, nil
}

func parseIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("index missing")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("index is not a number: %s", raw)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("index is not an integer: %s", n)
	}
	return int(i), nil
}

func encodeSlot(index int, slot slots.Slot) ([]byte, error) {
	return json.Marshal(Message{Type: TypeSlots, Index: index, Slot: slot})
}

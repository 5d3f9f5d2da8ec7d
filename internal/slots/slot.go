package slots

import (
	"bytes"
	"encoding/json"
)

// Status tokens known to the board. Clinics may send any other token; it is
// stored as-is.
const (
	StatusFree     = "free"
	StatusOccupied = "occupied"
)

// DefaultCount is the board size used when none is configured.
const DefaultCount = 30

// Slot is one position on the board. Nil pointers encode as JSON null.
type Slot struct {
	Status     string  `json:"status"`
	Name       *string `json:"name"`
	PersonalID *string `json:"personalId"`
	Note       *string `json:"note"`
}

// Free returns the default record every slot starts with.
func Free() Slot {
	return Slot{Status: StatusFree}
}

// Text returns a pointer to s, for building optional fields.
func Text(s string) *string {
	return &s
}

// Equal reports whether both slots hold the same values.
func (s Slot) Equal(o Slot) bool {
	return s.Status == o.Status &&
		sameText(s.Name, o.Name) &&
		sameText(s.PersonalID, o.PersonalID) &&
		sameText(s.Note, o.Note)
}

func (s Slot) clone() Slot {
	return Slot{
		Status:     s.Status,
		Name:       copyText(s.Name),
		PersonalID: copyText(s.PersonalID),
		Note:       copyText(s.Note),
	}
}

// Update is a partial slot payload as sent by a client. Nil means the field
// was absent, null or unusable.
type Update struct {
	Status     *string
	Name       *string
	PersonalID *string
	Note       *string
}

// Slot materializes the update into a full record. Absent fields take their
// defaults; nothing is carried over from the previous value of the slot.
func (u Update) Slot() Slot {
	s := Slot{
		Status:     StatusFree,
		Name:       copyText(u.Name),
		PersonalID: copyText(u.PersonalID),
		Note:       copyText(u.Note),
	}
	if u.Status != nil && *u.Status != "" {
		s.Status = *u.Status
	}
	return s
}

// ParseUpdate reads a raw "slot" object. It never fails: a payload that is not
// an object yields an empty Update, and fields of the wrong type are dropped
// so they fall back to their defaults. personalId also accepts a JSON number
// and keeps its literal text.
func ParseUpdate(raw json.RawMessage) Update {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Update{}
	}
	return Update{
		Status:     textField(fields["status"], false),
		Name:       textField(fields["name"], false),
		PersonalID: textField(fields["personalId"], true),
		Note:       textField(fields["note"], false),
	}
}

func textField(raw json.RawMessage, allowNumber bool) *string {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		return &x
	case json.Number:
		if allowNumber {
			return Text(x.String())
		}
	}
	return nil
}

func copyText(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

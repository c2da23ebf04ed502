// Package webhook authenticates, normalizes, classifies and routes
// credential platform callbacks.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnrecognizedPayload marks a body that is not one of the known shapes.
var ErrUnrecognizedPayload = errors.New("unrecognized webhook payload")

// Payload is either a NestedPayload or a FlatPayload.
type Payload interface {
	fields() map[string]any
}

// NestedPayload is the platform's delivery shape: envelope fields (type,
// timestamp, orgId, tenantId) at the top level and event fields under data.
type NestedPayload struct {
	Envelope map[string]any
	Data     map[string]any
}

// fields merges data under the envelope. Envelope values win.
func (p NestedPayload) fields() map[string]any {
	out := make(map[string]any, len(p.Envelope)+len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	for k, v := range p.Envelope {
		out[k] = v
	}
	return out
}

// FlatPayload already carries every field at the top level.
type FlatPayload struct {
	Fields map[string]any
}

func (p FlatPayload) fields() map[string]any {
	return p.Fields
}

// ParsePayload decides which shape body has. Anything but a JSON object, or
// an object whose data member is not an object, is rejected.
func ParsePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrUnrecognizedPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}

	raw, nested := top["data"]
	if !nested {
		return FlatPayload{Fields: top}, nil
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: data is not an object", ErrUnrecognizedPayload)
	}
	envelope := make(map[string]any, len(top)-1)
	for k, v := range top {
		if k != "data" {
			envelope[k] = v
		}
	}
	return NestedPayload{Envelope: envelope, Data: data}, nil
}

// Event is the flat record every downstream step works on.
type Event struct {
	Type         string
	State        string
	ID           string
	ConnectionID string
	InvitationID string
	ProofID      string
	TheirLabel   string
	OrgID        string
	TenantID     string
	Timestamp    string
	Fields       map[string]any
}

// Normalize flattens p into an Event. A missing type is rejected.
func Normalize(p Payload) (Event, error) {
	if p == nil {
		return Event{}, ErrUnrecognizedPayload
	}
	f := p.fields()
	ev := Event{
		Type:         stringField(f, "type"),
		State:        stringField(f, "state"),
		ID:           stringField(f, "id"),
		ConnectionID: stringField(f, "connectionId"),
		InvitationID: stringField(f, "invitationId", "outOfBandId"),
		ProofID:      stringField(f, "proofId", "proofRecordId"),
		TheirLabel:   stringField(f, "theirLabel"),
		OrgID:        stringField(f, "orgId"),
		TenantID:     stringField(f, "tenantId"),
		Timestamp:    stringField(f, "timestamp"),
		Fields:       f,
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrUnrecognizedPayload)
	}
	return ev, nil
}

// ParseEvent parses and normalizes in one step.
func ParseEvent(body []byte) (Event, error) {
	p, err := ParsePayload(body)
	if err != nil {
		return Event{}, err
	}
	return Normalize(p)
}

// ConnectionKey is the key a broadcast about this event is addressed to.
func (e Event) ConnectionKey() string {
	if e.ConnectionID != "" {
		return e.ConnectionID
	}
	return e.ID
}

// ResolvedProofID is the proof record the event refers to.
func (e Event) ResolvedProofID() string {
	if e.ProofID != "" {
		return e.ProofID
	}
	return e.ID
}

func stringField(f map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := f[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

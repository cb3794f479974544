package calls

import (
	"bytes"
	"encoding/json"
)

// Request is a decoded call-initiation body.
//
// The body is decoded leniently: unparseable JSON behaves like an empty body,
// and fields holding the wrong JSON type are treated as absent. Only
// customerNumber is type-checked, and that check happens in Service.Initiate
// so it runs after the configuration check.
type Request struct {
	// CustomerNumber is nil when absent or not a JSON string.
	CustomerNumber *string

	AssistantID   string
	PhoneNumberID string
	// PhoneNumber is the literal originating-number object, {"number": "..."}.
	PhoneNumber json.RawMessage

	AssistantOverrides json.RawMessage
	Metadata           json.RawMessage
}

// Caller is what the handler knows about who asked for the call.
// Every field is best-effort and may be empty.
type Caller struct {
	IP        string
	UserID    string
	UserAgent string
}

// ParseRequest decodes a raw request body.
func ParseRequest(body []byte) Request {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Request{}
	}

	var req Request
	if s, ok := jsonString(fields["customerNumber"]); ok {
		req.CustomerNumber = &s
	}
	req.AssistantID, _ = jsonString(fields["assistantId"])
	req.PhoneNumberID, _ = jsonString(fields["phoneNumberId"])
	req.PhoneNumber = phoneNumberObject(fields["phoneNumber"])
	if isObject(fields["assistantOverrides"]) {
		req.AssistantOverrides = fields["assistantOverrides"]
	}
	if isObject(fields["metadata"]) {
		req.Metadata = fields["metadata"]
	}
	return req
}

// Source returns metadata.source when it is a non-empty string.
func (r Request) Source() string {
	var m struct {
		Source json.RawMessage `json:"source"`
	}
	if len(r.Metadata) == 0 || json.Unmarshal(r.Metadata, &m) != nil {
		return ""
	}
	s, _ := jsonString(m.Source)
	return s
}

// Coords returns metadata.coords verbatim, nil when absent or null.
func (r Request) Coords() json.RawMessage {
	var m struct {
		Coords json.RawMessage `json:"coords"`
	}
	if len(r.Metadata) == 0 || json.Unmarshal(r.Metadata, &m) != nil {
		return nil
	}
	if len(m.Coords) == 0 || bytes.Equal(m.Coords, []byte("null")) {
		return nil
	}
	return m.Coords
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// phoneNumberObject accepts either a bare number string or a provider phone-number object.
func phoneNumberObject(raw json.RawMessage) json.RawMessage {
	if s, ok := jsonString(raw); ok {
		if s == "" {
			return nil
		}
		return literalNumber(s)
	}
	if isObject(raw) {
		return raw
	}
	return nil
}

func literalNumber(number string) json.RawMessage {
	b, _ := json.Marshal(struct {
		Number string `json:"number"`
	}{Number: number})
	return b
}

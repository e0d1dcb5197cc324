package pagination

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var offsetPattern = regexp.MustCompile(`offset=(\d+)`)

// Meta is the pagination block tastypie attaches to list responses.
type Meta struct {
	Limit      int     `json:"limit"`
	Next       *string `json:"next"`
	Offset     int     `json:"offset"`
	Previous   *string `json:"previous"`
	TotalCount int     `json:"total_count"`
}

// HasNext reports whether the server announced another page.
func (m Meta) HasNext() bool {
	return m.Next != nil && *m.Next != ""
}

// List is a tastypie list envelope. Objects are left undecoded.
type List struct {
	Meta    Meta              `json:"meta"`
	Objects []json.RawMessage `json:"objects"`
}

// ParseOffset extracts the offset from a continuation token such as
// "/api/v1/post/?limit=20&offset=40". It reports false when the token
// carries no offset; no bounds checking is done.
func ParseOffset(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	m := offsetPattern.FindStringSubmatch(token)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// DecodeList decodes a list response payload.
func DecodeList(payload []byte) (*List, error) {
	var list List
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return &list, nil
}

// SinceToken reads the continuation token stored under field in the meta
// block of a list payload. It returns "" when the field is missing or null.
func SinceToken(payload []byte, field string) (string, error) {
	var envelope struct {
		Meta map[string]json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", fmt.Errorf("decode list meta: %w", err)
	}

	raw, ok := envelope.Meta[field]
	if !ok || string(raw) == "null" {
		return "", nil
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", fmt.Errorf("decode meta field %q: %w", field, err)
	}
	return token, nil
}

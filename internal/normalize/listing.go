// Package normalize converts raw listing-API payloads into canonical
// entity records and profile references.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/medindex/practo-crawler/internal/practo"
)

// ErrShape flags a listing response whose top-level structure is missing
// or malformed. The orchestrator skips the page.
var ErrShape = errors.New("unexpected listing payload shape")

// ListingPage is one page of search results. The doctor and
// establishment searches share the envelope but carry their entity
// collections under different keys.
type ListingPage struct {
	Form        FormMeta    `json:"form"`
	ListingData ListingMeta `json:"listing_data"`

	Doctors        *EntityCollection `json:"doctors"`
	Establishments *EntityCollection `json:"establishments"`
}

// FormMeta carries the establishment-search result metadata.
type FormMeta struct {
	ResultsType  string         `json:"results_type"`
	TotalResults practo.Numeric `json:"total_results"`
}

// ListingMeta carries the doctor-search result metadata.
type ListingMeta struct {
	DoctorsFound practo.Numeric `json:"doctors_found"`
}

// EntityCollection wraps the id-keyed entity map.
type EntityCollection struct {
	Entities EntitySet `json:"entities"`
}

// EntitySet decodes an id-keyed JSON object while preserving document
// order, which the plain map type would lose.
type EntitySet struct {
	IDs []string
	Raw map[string]json.RawMessage
}

// UnmarshalJSON walks the object token stream so keys come out in
// document order.
func (e *EntitySet) UnmarshalJSON(b []byte) error {
	e.IDs = nil
	e.Raw = make(map[string]json.RawMessage)

	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("entities: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entities: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("entities key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("entities key: unexpected token %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("entities[%s]: %w", key, err)
		}
		e.IDs = append(e.IDs, key)
		e.Raw[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("entities close: %w", err)
	}
	return nil
}

// SplitName decomposes a display name into the two stored name fields:
// the first two whitespace-separated tokens become the first name, the
// remainder the last name.
func SplitName(full string) (first, last string) {
	tokens := strings.Fields(full)
	if len(tokens) <= 2 {
		return strings.Join(tokens, " "), ""
	}
	return strings.Join(tokens[:2], " "), strings.Join(tokens[2:], " ")
}

// rawJSONText renders a raw JSON fragment for a text column, falling back
// to an empty object when the field is absent.
func rawJSONText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// Package extract pulls a JSON object out of free-form LLM replies.
//
// The object is located by taking the text between the first '{' and the last
// '}' in the reply. Braces in surrounding prose are not special-cased, so a
// reply such as `use {x} like this: {"a":1}` yields malformed JSON rather than
// the trailing object. That imprecision is accepted: callers degrade to a
// fallback record instead of guessing.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/drpaneas/devtracker/internal/textutil"
)

var (
	// ErrExtractionFailed matches replies that do not contain a parseable
	// JSON object.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrValidationFailed matches objects that parsed but could not be
	// turned into the requested record.
	ErrValidationFailed = errors.New("validation failed")
)

// Kind classifies why extraction failed.
type Kind int

const (
	NoObject Kind = iota + 1
	MalformedJSON
	MissingField
	Decode
)

func (k Kind) String() string {
	switch k {
	case NoObject:
		return "no_object"
	case MalformedJSON:
		return "malformed_json"
	case MissingField:
		return "missing_field"
	case Decode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error describes a failed extraction.
type Error struct {
	Kind  Kind
	Field string // set for MissingField
	Err   error
	// Snippet holds the start of the raw reply for logging.
	Snippet string
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("extract: missing required field %q", e.Field)
	case NoObject:
		return "extract: no JSON object in reply"
	default:
		if e.Err != nil {
			return fmt.Sprintf("extract: %s: %v", e.Kind, e.Err)
		}
		return "extract: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel matching the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrExtractionFailed:
		return e.Kind == NoObject || e.Kind == MalformedJSON
	case ErrValidationFailed:
		return e.Kind == MissingField || e.Kind == Decode
	}
	return false
}

const snippetLen = 200

func fail(kind Kind, raw string, err error) *Error {
	return &Error{Kind: kind, Err: err, Snippet: textutil.Truncate(raw, snippetLen, "...")}
}

// Span returns the inclusive substring between the first '{' and the last
// '}' of raw. ok is false when either brace is missing or they are out of
// order.
func Span(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Object locates and parses the JSON object embedded in raw. Because the
// span always starts with '{', any span that parses is an object; a reply
// holding only an array or scalar has no brace pair and fails as NoObject.
func Object(raw string) (map[string]json.RawMessage, error) {
	span, ok := Span(raw)
	if !ok {
		return nil, fail(NoObject, raw, nil)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fail(MalformedJSON, raw, err)
	}
	return obj, nil
}

// HasObject reports whether raw holds a parseable JSON object.
func HasObject(raw string) bool {
	_, err := Object(raw)
	return err == nil
}

// Into extracts the JSON object from raw, checks that every required key is
// present and non-null, and decodes the object into dst. dst must be a
// pointer to a struct.
func Into(raw string, dst any, required ...string) error {
	obj, err := Object(raw)
	if err != nil {
		return err
	}
	for _, key := range required {
		v, ok := obj[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			e := fail(MissingField, raw, nil)
			e.Field = key
			return e
		}
	}
	span, _ := Span(raw)
	if err := json.Unmarshal([]byte(span), dst); err != nil {
		return fail(Decode, raw, err)
	}
	return nil
}

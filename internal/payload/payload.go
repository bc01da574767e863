// Package payload renders and validates outgoing publish payloads.
//
// A subscription's template is free text containing zero or more
// occurrences of the literal placeholder {{value}}. Rendering substitutes
// the runtime value into every occurrence with no escaping; the template
// author is responsible for producing syntactically valid output. After
// substitution the text must parse as JSON or the publish attempt is
// aborted before any network activity.
//
// Both operations are pure and side-effect-free.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder is the literal token replaced during rendering.
const Placeholder = "{{value}}"

// Render produces the outgoing payload text from a template and a value.
//
// The template is trimmed of leading/trailing whitespace, then every
// occurrence of Placeholder is replaced with the value verbatim.
func Render(template, value string) string {
	return strings.ReplaceAll(strings.TrimSpace(template), Placeholder, value)
}

// InvalidPayloadError reports that rendered text failed JSON validation.
// It carries the offending text for diagnostics in the event log.
type InvalidPayloadError struct {
	Text string
	Err  error
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("payload is not valid JSON: %v", e.Err)
}

func (e *InvalidPayloadError) Unwrap() error {
	return e.Err
}

// Validate checks that text parses as JSON.
//
// Returns nil on success, or an *InvalidPayloadError carrying the raw
// text. Validation failure is terminal for a publish attempt: the caller
// must not send anything over the network.
func Validate(text string) error {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return &InvalidPayloadError{Text: text, Err: err}
	}
	return nil
}

package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError reports a model response that could not be decoded
// into the oracle's expected schema. It is distinct from transport errors so
// callers can tell "the model answered garbage" from "the call failed".
type MalformedResponseError struct {
	Oracle string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s oracle returned a malformed response: %v", e.Oracle, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// extractJSON locates the JSON object in a model response and decodes it
// into out. Responses are commonly wrapped in markdown code fences or
// surrounded by prose; everything outside the outermost braces is ignored.
func extractJSON(oracleName, raw string, out interface{}) error {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return &MalformedResponseError{Oracle: oracleName, Raw: raw,
			Err: fmt.Errorf("no JSON object found")}
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return &MalformedResponseError{Oracle: oracleName, Raw: raw, Err: err}
	}
	return nil
}

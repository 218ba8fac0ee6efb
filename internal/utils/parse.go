package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeFrame unmarshals a single stream frame into T.
//
// Upstream frames occasionally arrive truncated or with trailing garbage (a
// proxy flushing mid-object, a missing closing brace). When strict decoding
// fails the frame is passed through jsonrepair and decoded once more. The
// returned bool reports whether the repaired form was used.
//
// Returns an error only when both attempts fail; callers drop such frames.
func DecodeFrame[T any](frame string) (T, bool, error) {
	var result T

	trimmed := strings.TrimSpace(frame)
	if trimmed == "" {
		return result, false, fmt.Errorf("empty frame")
	}

	err := json.Unmarshal([]byte(trimmed), &result)
	if err == nil {
		return result, false, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(trimmed)
	if repairErr != nil {
		return result, false, fmt.Errorf("failed to decode frame and failed to repair JSON: decode error: %w, repair error: %v", err, repairErr)
	}

	var repaired T
	if retryErr := json.Unmarshal([]byte(repairedJSON), &repaired); retryErr != nil {
		return result, false, fmt.Errorf("failed to decode repaired frame: %w (frame: %s)", retryErr, TruncateString(trimmed, 200))
	}
	return repaired, true, nil
}

// ParseJSONObject decodes a JSON object such as accumulated tool-call
// arguments. Empty input yields an empty map. Input that is not an object even
// after repair is kept under the "raw" key so no model output is lost.
func ParseJSONObject(content string) map[string]any {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return map[string]any{}
	}

	object, _, err := DecodeFrame[map[string]any](trimmed)
	if err != nil || object == nil {
		return map[string]any{"raw": content}
	}
	return object
}

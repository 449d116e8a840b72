package extract

import (
	"encoding/json"
	"errors"
	"regexp"

	"github.com/iamvkosarev/study-energy-bot/internal/model"
)

var (
	ErrNoStructureFound     = errors.New("no JSON object found in generated text")
	ErrMissingRequiredField = errors.New("generated JSON object has no content field")
)

// The generator is asked to answer in JSON but often wraps the object in
// prose. The scan deliberately matches the first '{' up to the first
// following '}': nested objects and brace characters inside string values
// are not supported, matching the behavior the product shipped with.
var jsonObjectPattern = regexp.MustCompile(`\{[^}]*\}`)

// Payload locates the first brace-delimited substring of raw, parses it
// and validates that a non-empty content field is present.
func Payload(raw string) (model.ExtractedPayload, error) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return model.ExtractedPayload{}, ErrNoStructureFound
	}

	var payload model.ExtractedPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return model.ExtractedPayload{}, ErrNoStructureFound
	}
	if payload.Content == "" {
		return model.ExtractedPayload{}, ErrMissingRequiredField
	}
	return payload, nil
}

package stage

import (
	"encoding/json"
	"fmt"
	"strings"

	"scenecast/internal/services"
)

// DecodeArtifact parses a JSON artifact stored on a queue item. A missing or
// malformed artifact is a validation error naming the stage that should be
// rerun.
func DecodeArtifact[T any](raw, name, rerun string) (T, error) {
	var out T
	if strings.TrimSpace(raw) == "" {
		return out, services.Wrap(services.ErrValidation, "stage", "decode "+name,
			fmt.Sprintf("%s missing; rerun %s", name, rerun), nil)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, services.Wrap(services.ErrValidation, "stage", "decode "+name,
			fmt.Sprintf("%s invalid; rerun %s", name, rerun), err)
	}
	return out, nil
}

// EncodeArtifact serializes v for storage on a queue item.
func EncodeArtifact(v any, name string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return string(data), nil
}

package out

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	pipelineout "cardadapter/internal/modules/pipeline/port/out"
	apperrors "cardadapter/internal/platform/errors"
)

type JSONPayloadReader struct{}

func NewJSONPayloadReader() pipelineout.PayloadReader {
	return JSONPayloadReader{}
}

// Read decodes a JSON object. Anything other than an object is rejected.
func (JSONPayloadReader) Read(_ context.Context, path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload %s: %v", apperrors.ErrInvalidInput, path, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload %s is not a JSON object", apperrors.ErrInvalidInput, path)
	}
	return payload, nil
}

package out

import (
	"bytes"
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	templateout "cardadapter/internal/modules/template/port/out"
)

type JSONDocumentReader struct{}

func NewJSONDocumentReader() templateout.DocumentReader {
	return JSONDocumentReader{}
}

func (JSONDocumentReader) Read(_ context.Context, path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("read document %s: empty file", path)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return doc, nil
}

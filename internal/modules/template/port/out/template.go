package out

import "context"

// DocumentReader loads a JSON document (template or data) from a path.
type DocumentReader interface {
	Read(ctx context.Context, path string) (any, error)
}

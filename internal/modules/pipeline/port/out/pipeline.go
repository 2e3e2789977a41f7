package out

import (
	"context"

	plugindomain "cardadapter/internal/modules/plugin/domain"
)

// Resolver installs a package if needed and leases its handler. release must
// be called once the handler is no longer invoked.
type Resolver interface {
	Resolve(ctx context.Context, installPath, packageName string, force bool) (handler plugindomain.Plugin, release func(), err error)
}

// Expander merges data into a card template.
type Expander interface {
	Expand(data, template any) (any, error)
}

// PayloadReader loads a dialog payload document.
type PayloadReader interface {
	Read(ctx context.Context, path string) (map[string]any, error)
}

package out

import (
	"context"

	"cardadapter/internal/modules/plugin/domain"
)

// ManifestStore reads the package manifest found at an install location.
type ManifestStore interface {
	Read(ctx context.Context, location string) (domain.Manifest, error)
}

// InstallStore persists installations across processes.
type InstallStore interface {
	Get(ctx context.Context, name string) (domain.Installation, bool, error)
	FindByLocation(ctx context.Context, location string) (domain.Installation, bool, error)
	Put(ctx context.Context, installation domain.Installation) error
	List(ctx context.Context) ([]domain.Installation, error)
	Close() error
}

// Host starts an installed package and hands back its entry point. The
// returned stop function releases whatever the host started.
type Host interface {
	Launch(ctx context.Context, installation domain.Installation) (domain.Plugin, func(), error)
	CheckLifecycle(ctx context.Context, installation domain.Installation) error
}

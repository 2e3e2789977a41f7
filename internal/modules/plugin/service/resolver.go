package service

import (
	"context"
	"path/filepath"

	"cardadapter/internal/modules/plugin/domain"
)

// Resolver turns an install location and package name into an invocable
// handler, installing the package first when needed. The returned release
// func ends the caller's lease on the handler.
type Resolver struct {
	registry    *Registry
	projectRoot string
}

func NewResolver(registry *Registry, projectRoot string) *Resolver {
	return &Resolver{registry: registry, projectRoot: projectRoot}
}

func (r *Resolver) Resolve(ctx context.Context, installPath, packageName string, force bool) (domain.Plugin, func(), error) {
	location := r.location(installPath)
	if _, err := r.registry.Install(ctx, location, force); err != nil {
		return nil, nil, &domain.ResolutionError{Package: packageName, Location: location, Err: err}
	}
	handler, release, err := r.registry.Lookup(ctx, packageName)
	if err != nil {
		return nil, nil, &domain.ResolutionError{Package: packageName, Location: location, Err: err}
	}
	return handler, release, nil
}

func (r *Resolver) location(installPath string) string {
	if installPath == "" || filepath.IsAbs(installPath) || r.projectRoot == "" {
		return filepath.Clean(installPath)
	}
	return filepath.Join(r.projectRoot, installPath)
}

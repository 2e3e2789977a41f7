package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cardadapter/internal/modules/plugin/domain"
	"cardadapter/internal/modules/plugin/dto"
)

// PluginService exposes the registry to the CLI.
type PluginService struct {
	registry *Registry
	resolver *Resolver
}

func NewPluginService(registry *Registry, resolver *Resolver) *PluginService {
	return &PluginService{registry: registry, resolver: resolver}
}

func (s *PluginService) Install(ctx context.Context, input dto.InstallInput) (dto.PluginInfo, error) {
	location := s.resolver.location(input.Path)
	inst, err := s.registry.Install(ctx, location, input.Force)
	if err != nil {
		return dto.PluginInfo{}, &domain.ResolutionError{Package: filepath.Base(location), Location: location, Err: err}
	}
	return toInfo(inst), nil
}

func (s *PluginService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	installs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(installs))
	for _, inst := range installs {
		out = append(out, toInfo(inst))
	}
	return out, nil
}

func (s *PluginService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	installs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(installs))
	for _, inst := range installs {
		result := dto.DoctorResult{Name: inst.Name, Runtime: string(inst.Runtime)}
		if inst.Runtime == domain.RuntimeGRPC {
			result.BinaryReachable = fileExists(inst.Binary)
			if result.BinaryReachable {
				digest, err := fileDigest(inst.Binary)
				result.ChecksumValid = err == nil && digest == inst.SHA256
			}
		} else {
			result.BinaryReachable = true
			result.ChecksumValid = true
		}
		switch {
		case !result.BinaryReachable:
			result.Error = fmt.Sprintf("binary does not exist: %s", inst.Binary)
		case !result.ChecksumValid:
			result.Error = "checksum mismatch"
		default:
			if err := s.registry.CheckLifecycle(ctx, inst); err != nil {
				result.Error = err.Error()
			} else {
				result.LifecycleOK = true
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *PluginService) Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error) {
	_, release, err := s.resolver.Resolve(ctx, input.Path, input.Package, input.Force)
	if err != nil {
		return dto.ResolveOutput{}, err
	}
	release()
	inst, _, err := s.registry.Get(ctx, input.Package)
	if err != nil {
		return dto.ResolveOutput{}, err
	}
	return dto.ResolveOutput{Package: input.Package, Roles: roleNames(inst.Roles)}, nil
}

func toInfo(inst domain.Installation) dto.PluginInfo {
	return dto.PluginInfo{
		Name:        inst.Name,
		Version:     inst.Version,
		Runtime:     string(inst.Runtime),
		Location:    inst.Location,
		Binary:      inst.Binary,
		Entry:       inst.Entry,
		Roles:       roleNames(inst.Roles),
		InstalledAt: inst.InstalledAt,
	}
}

func roleNames(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

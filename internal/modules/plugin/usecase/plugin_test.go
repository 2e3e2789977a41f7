package usecase_test

import (
	"context"
	"testing"

	pluginout "cardadapter/internal/modules/plugin/adapter/out"
	"cardadapter/internal/modules/plugin/domain"
	"cardadapter/internal/modules/plugin/dto"
	outport "cardadapter/internal/modules/plugin/port/out"
	"cardadapter/internal/modules/plugin/service"
	"cardadapter/internal/modules/plugin/usecase"
	"cardadapter/internal/platform/clock"
)

type staticManifest struct {
	manifest domain.Manifest
}

func (s staticManifest) Read(context.Context, string) (domain.Manifest, error) {
	return s.manifest, nil
}

func TestUsecaseInstallResolveAndDoctor(t *testing.T) {
	t.Parallel()
	host := pluginout.NewBuiltinHost()
	host.MustRegister("echo", domain.SelectorFunc(func(_ context.Context, payload map[string]any) (any, error) {
		return map[string]any{"echo": payload}, nil
	}))
	installs, err := pluginout.NewSQLiteInstallStore(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatalf("open install store: %v", err)
	}
	manifests := staticManifest{manifest: domain.Manifest{
		Name:    "echo",
		Version: "0.1.0",
		Runtime: domain.RuntimeBuiltin,
		Entry:   "echo",
		Roles:   []domain.Role{domain.RoleSelector},
	}}
	registry := service.NewRegistry(manifests, installs, map[domain.Runtime]outport.Host{domain.RuntimeBuiltin: host}, t.TempDir(), clock.SystemClock{}, nil)
	t.Cleanup(func() { _ = registry.Close() })
	uc := usecase.NewInteractor(service.NewPluginService(registry, service.NewResolver(registry, t.TempDir())))
	ctx := context.Background()

	info, err := uc.Install(ctx, dto.InstallInput{Path: "echo"})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if info.Name != "echo" || info.Entry != "echo" {
		t.Fatalf("unexpected install: %+v", info)
	}

	out, err := uc.Resolve(ctx, dto.ResolveInput{Path: "echo", Package: "echo"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Package != "echo" || len(out.Roles) != 1 {
		t.Fatalf("unexpected resolve output: %+v", out)
	}

	docs, err := uc.Doctor(ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(docs) != 1 || !docs[0].LifecycleOK {
		t.Fatalf("unexpected doctor result: %+v", docs)
	}
}

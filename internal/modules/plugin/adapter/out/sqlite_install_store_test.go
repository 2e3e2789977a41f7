package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	pluginout "cardadapter/internal/modules/plugin/adapter/out"
	"cardadapter/internal/modules/plugin/domain"
)

func TestSQLiteInstallStorePutGetList(t *testing.T) {
	t.Parallel()
	store, err := pluginout.NewSQLiteInstallStore(filepath.Join(t.TempDir(), "state", "cardadapter.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	installedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inst := domain.Installation{
		Name:        "reference",
		Version:     "1.0.0",
		Runtime:     domain.RuntimeGRPC,
		Location:    "/project/plugins/reference",
		Binary:      "/state/plugins/reference/1.0.0/reference-plugin",
		SHA256:      "abc",
		Roles:       []domain.Role{domain.RoleSelector, domain.RolePostProcessor},
		InstalledAt: installedAt,
	}
	if err := store.Put(ctx, inst); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, "reference")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(inst, got); diff != "" {
		t.Fatalf("installation mismatch (-want +got):\n%s", diff)
	}

	byLocation, ok, err := store.FindByLocation(ctx, "/project/plugins/reference")
	if err != nil || !ok || byLocation.Name != "reference" {
		t.Fatalf("find by location: %+v ok=%v err=%v", byLocation, ok, err)
	}

	inst.Version = "1.1.0"
	inst.InstalledAt = installedAt.Add(time.Hour)
	if err := store.Put(ctx, inst); err != nil {
		t.Fatalf("put upgrade: %v", err)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Version != "1.1.0" {
		t.Fatalf("expected upsert, got %+v", all)
	}
}

func TestSQLiteInstallStoreMissing(t *testing.T) {
	t.Parallel()
	store, err := pluginout.NewSQLiteInstallStore(filepath.Join(t.TempDir(), "cardadapter.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if _, ok, err := store.Get(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.FindByLocation(context.Background(), "/nowhere"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

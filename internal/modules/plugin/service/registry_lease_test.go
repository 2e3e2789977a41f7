package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardadapter/internal/modules/plugin/domain"
)

var errStopped = errors.New("plugin stopped")

// gatedHost holds the first Launch until gate is closed. Handlers fail once
// their stop func has run.
type gatedHost struct {
	started  chan struct{}
	gate     chan struct{}
	launches atomic.Int32
	stops    atomic.Int32
}

func newGatedHost() *gatedHost {
	return &gatedHost{started: make(chan struct{}), gate: make(chan struct{})}
}

func (h *gatedHost) Launch(_ context.Context, inst domain.Installation) (domain.Plugin, func(), error) {
	if h.launches.Add(1) == 1 {
		close(h.started)
		<-h.gate
	}
	var stopped atomic.Bool
	selector := domain.SelectorFunc(func(context.Context, map[string]any) (any, error) {
		if stopped.Load() {
			return nil, errStopped
		}
		return map[string]any{"from": inst.Name, "version": inst.Version}, nil
	})
	stop := func() {
		stopped.Store(true)
		h.stops.Add(1)
	}
	return selector, stop, nil
}

func (h *gatedHost) CheckLifecycle(context.Context, domain.Installation) error { return nil }

func selectedVersion(t *testing.T, p domain.Plugin) any {
	t.Helper()
	got, err := p.SelectTemplate(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("select template: %v", err)
	}
	return got.(map[string]any)["version"]
}

func TestLookupRacingForcedInstallCachesNewInstallation(t *testing.T) {
	t.Parallel()
	manifests := &fakeManifests{manifests: map[string]domain.Manifest{"/pkgs/a": builtinManifest("a")}}
	host := newGatedHost()
	registry := newRegistry(t, manifests, newMemoryInstalls(), host)
	ctx := context.Background()

	if _, err := registry.Install(ctx, "/pkgs/a", false); err != nil {
		t.Fatalf("install: %v", err)
	}

	type result struct {
		plugin  domain.Plugin
		release func()
		err     error
	}
	done := make(chan result, 1)
	go func() {
		p, release, err := registry.Lookup(ctx, "a")
		done <- result{p, release, err}
	}()
	<-host.started

	upgraded := builtinManifest("a")
	upgraded.Version = "2.0.0"
	manifests.set("/pkgs/a", upgraded)
	if _, err := registry.Install(ctx, "/pkgs/a", true); err != nil {
		t.Fatalf("forced install: %v", err)
	}
	close(host.gate)

	res := <-done
	if res.err != nil {
		t.Fatalf("lookup: %v", res.err)
	}
	if got := selectedVersion(t, res.plugin); got != "2.0.0" {
		t.Fatalf("lookup started before reinstall returned version %v", got)
	}
	res.release()

	p, release, err := registry.Lookup(ctx, "a")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	defer release()
	if got := selectedVersion(t, p); got != "2.0.0" {
		t.Fatalf("cached handler serves version %v", got)
	}
	if got := host.stops.Load(); got != 1 {
		t.Fatalf("expected the outdated launch stopped, got %d stops", got)
	}
	if got := host.launches.Load(); got != 2 {
		t.Fatalf("expected one relaunch, got %d launches", got)
	}
}

func TestForcedInstallKeepsLeasedHandlerUntilReleased(t *testing.T) {
	t.Parallel()
	manifests := &fakeManifests{manifests: map[string]domain.Manifest{"/pkgs/a": builtinManifest("a")}}
	host := newGatedHost()
	close(host.gate)
	registry := newRegistry(t, manifests, newMemoryInstalls(), host)
	ctx := context.Background()

	if _, err := registry.Install(ctx, "/pkgs/a", false); err != nil {
		t.Fatalf("install: %v", err)
	}
	leased, release, err := registry.Lookup(ctx, "a")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	upgraded := builtinManifest("a")
	upgraded.Version = "2.0.0"
	manifests.set("/pkgs/a", upgraded)
	if _, err := registry.Install(ctx, "/pkgs/a", true); err != nil {
		t.Fatalf("forced install: %v", err)
	}
	if got := host.stops.Load(); got != 0 {
		t.Fatalf("leased handler stopped during reinstall")
	}
	if got := selectedVersion(t, leased); got != "1.0.0" {
		t.Fatalf("leased handler changed version: %v", got)
	}

	fresh, releaseFresh, err := registry.Lookup(ctx, "a")
	if err != nil {
		t.Fatalf("lookup after reinstall: %v", err)
	}
	defer releaseFresh()
	if got := selectedVersion(t, fresh); got != "2.0.0" {
		t.Fatalf("expected new installation, got version %v", got)
	}

	release()
	release()
	if got := host.stops.Load(); got != 1 {
		t.Fatalf("expected retired handler stopped once after release, got %d", got)
	}
	if _, err := leased.SelectTemplate(ctx, map[string]any{}); !errors.Is(err, errStopped) {
		t.Fatalf("expected retired handler stopped, got %v", err)
	}
}

func TestCloseStopsRetiredHandlersStillLeased(t *testing.T) {
	t.Parallel()
	manifests := &fakeManifests{manifests: map[string]domain.Manifest{"/pkgs/a": builtinManifest("a")}}
	host := newGatedHost()
	close(host.gate)
	registry := newRegistry(t, manifests, newMemoryInstalls(), host)
	ctx := context.Background()

	if _, err := registry.Install(ctx, "/pkgs/a", false); err != nil {
		t.Fatalf("install: %v", err)
	}
	_, release, err := registry.Lookup(ctx, "a")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := registry.Install(ctx, "/pkgs/a", true); err != nil {
		t.Fatalf("forced install: %v", err)
	}

	if err := registry.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := host.stops.Load(); got != 1 {
		t.Fatalf("expected retired handler stopped by close, got %d", got)
	}
	release()
	if got := host.stops.Load(); got != 1 {
		t.Fatalf("release after close stopped again: %d", got)
	}
}

func TestConcurrentLookupsDuringForcedInstalls(t *testing.T) {
	t.Parallel()
	manifests := &fakeManifests{manifests: map[string]domain.Manifest{"/pkgs/a": builtinManifest("a")}}
	host := newGatedHost()
	close(host.gate)
	registry := newRegistry(t, manifests, newMemoryInstalls(), host)
	ctx := context.Background()
	if _, err := registry.Install(ctx, "/pkgs/a", false); err != nil {
		t.Fatalf("install: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				if _, err := registry.Install(ctx, "/pkgs/a", true); err != nil {
					errs <- err
				}
				return
			}
			p, release, err := registry.Lookup(ctx, "a")
			if err != nil {
				errs <- err
				return
			}
			defer release()
			time.Sleep(time.Millisecond)
			if _, err := p.SelectTemplate(ctx, map[string]any{}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use: %v", err)
	}

	if err := registry.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if launches, stops := host.launches.Load(), host.stops.Load(); launches != stops {
		t.Fatalf("every launched handler must be stopped: launches=%d stops=%d", launches, stops)
	}
}

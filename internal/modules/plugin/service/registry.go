package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"
	"cardadapter/internal/platform/clock"
	"cardadapter/internal/platform/logging"
	"cardadapter/internal/platform/slug"
)

// Registry is the process-wide package resolution service. Installs are
// serialized per location. Launched handlers are cached per package and handed
// out as leases; a handler evicted by a reinstall is stopped once its last
// lease is released, or at Close.
type Registry struct {
	manifests  pluginout.ManifestStore
	installs   pluginout.InstallStore
	hosts      map[domain.Runtime]pluginout.Host
	installDir string
	clock      clock.Clock
	logger     hclog.Logger

	installFlights singleflight.Group
	lookupFlights  singleflight.Group

	mu          sync.RWMutex
	closed      bool
	installed   map[string]string // location -> package name, this process
	handlers    map[string]*handle
	retired     map[*handle]struct{}
	generations map[string]uint64
	locks       map[string]*sync.Mutex
}

// handle is a launched handler. refs and retired are guarded by Registry.mu.
type handle struct {
	plugin  domain.Plugin
	stop    func()
	once    sync.Once
	refs    int
	retired bool
}

func (h *handle) shutdown() {
	h.once.Do(h.stop)
}

func NewRegistry(
	manifests pluginout.ManifestStore,
	installs pluginout.InstallStore,
	hosts map[domain.Runtime]pluginout.Host,
	installDir string,
	clk clock.Clock,
	logger hclog.Logger,
) *Registry {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Registry{
		manifests:   manifests,
		installs:    installs,
		hosts:       hosts,
		installDir:  installDir,
		clock:       clk,
		logger:      logging.OrDiscard(logger).Named("plugin.registry"),
		installed:   make(map[string]string),
		handlers:    make(map[string]*handle),
		retired:     make(map[*handle]struct{}),
		generations: make(map[string]uint64),
		locks:       make(map[string]*sync.Mutex),
	}
}

// Install makes the package at location available. Without force, a location
// already installed (by this process, or earlier with an intact artifact) is
// left alone.
func (r *Registry) Install(ctx context.Context, location string, force bool) (domain.Installation, error) {
	if err := r.checkOpen(); err != nil {
		return domain.Installation{}, err
	}
	key := location + "#" + strconv.FormatBool(force)
	v, err, _ := r.installFlights.Do(key, func() (any, error) {
		lock := r.lockFor(location)
		lock.Lock()
		defer lock.Unlock()
		return r.install(ctx, location, force)
	})
	if err != nil {
		return domain.Installation{}, err
	}
	return v.(domain.Installation), nil
}

func (r *Registry) install(ctx context.Context, location string, force bool) (domain.Installation, error) {
	if !force {
		if inst, ok, err := r.reusable(ctx, location); err != nil {
			return domain.Installation{}, err
		} else if ok {
			r.logger.Trace("install skipped", "package", inst.Name, "location", location)
			return inst, nil
		}
	}

	manifest, err := r.manifests.Read(ctx, location)
	if err != nil {
		return domain.Installation{}, err
	}
	if err := manifest.Validate(); err != nil {
		return domain.Installation{}, err
	}
	if _, ok := r.hosts[manifest.Runtime]; !ok {
		return domain.Installation{}, fmt.Errorf("%w: %s", domain.ErrRuntimeMissing, manifest.Runtime)
	}

	inst := domain.Installation{
		Name:        manifest.Name,
		Version:     manifest.Version,
		Runtime:     manifest.Runtime,
		Location:    location,
		Entry:       manifest.Entry,
		Roles:       manifest.Roles,
		InstalledAt: r.clock.Now(),
	}
	if manifest.Runtime == domain.RuntimeGRPC {
		binary, digest, err := r.copyBinary(manifest)
		if err != nil {
			return domain.Installation{}, err
		}
		inst.Binary = binary
		inst.SHA256 = digest
	}
	if err := r.installs.Put(ctx, inst); err != nil {
		return domain.Installation{}, err
	}

	if stale := r.evict(location, inst.Name); stale != nil {
		stale.shutdown()
	}

	r.logger.Info("plugin installed", "package", inst.Name, "version", inst.Version, "location", location, "force", force)
	return inst, nil
}

// reusable reports whether location already holds a usable installation.
func (r *Registry) reusable(ctx context.Context, location string) (domain.Installation, bool, error) {
	r.mu.RLock()
	name, seen := r.installed[location]
	r.mu.RUnlock()
	if seen {
		inst, ok, err := r.installs.Get(ctx, name)
		if err != nil || ok {
			return inst, ok, err
		}
	}

	inst, ok, err := r.installs.FindByLocation(ctx, location)
	if err != nil || !ok {
		return domain.Installation{}, false, err
	}
	if inst.Runtime == domain.RuntimeGRPC {
		digest, err := fileDigest(inst.Binary)
		if err != nil || digest != inst.SHA256 {
			r.logger.Warn("installed artifact changed, reinstalling", "package", inst.Name, "binary", inst.Binary)
			return domain.Installation{}, false, nil
		}
	}
	r.mu.Lock()
	r.installed[location] = inst.Name
	r.mu.Unlock()
	return inst, true, nil
}

func (r *Registry) copyBinary(manifest domain.Manifest) (string, string, error) {
	digest, err := fileDigest(manifest.Binary)
	if err != nil {
		return "", "", fmt.Errorf("%w: binary %s: %v", domain.ErrManifestInvalid, manifest.Binary, err)
	}
	if manifest.SHA256 != "" && manifest.SHA256 != digest {
		return "", "", fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(manifest.Binary))
	}

	dir := slug.Join(r.installDir, manifest.Name, manifest.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create install dir: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(manifest.Binary))
	if err := copyExecutable(manifest.Binary, target); err != nil {
		return "", "", err
	}
	return target, digest, nil
}

// evict records location as installed and retires the cached handler for
// name. It returns the handler when nothing holds a lease on it any more.
func (r *Registry) evict(location, name string) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed[location] = name
	r.generations[name]++
	stale, ok := r.handlers[name]
	if !ok {
		return nil
	}
	delete(r.handlers, name)
	stale.retired = true
	if stale.refs > 0 {
		r.retired[stale] = struct{}{}
		return nil
	}
	return stale
}

// Lookup leases the handler registered under name, launching it on first use.
// The caller must call release once it is done invoking the handler.
func (r *Registry) Lookup(ctx context.Context, name string) (domain.Plugin, func(), error) {
	for {
		p, release, err := r.acquire(name)
		if err != nil || p != nil {
			return p, release, err
		}
		if _, err, _ := r.lookupFlights.Do(name, func() (any, error) {
			return nil, r.launch(ctx, name)
		}); err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}
}

func (r *Registry) acquire(name string) (domain.Plugin, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, domain.ErrRegistryClosed
	}
	h, ok := r.handlers[name]
	if !ok {
		return nil, nil, nil
	}
	h.refs++
	var once sync.Once
	return h.plugin, func() { once.Do(func() { r.release(h) }) }, nil
}

func (r *Registry) release(h *handle) {
	r.mu.Lock()
	h.refs--
	idle := h.retired && h.refs == 0
	if idle {
		delete(r.retired, h)
	}
	r.mu.Unlock()
	if idle {
		h.shutdown()
	}
}

// launch starts the installed package and caches its handler. A handler whose
// installation was replaced while it was starting is stopped, not cached.
func (r *Registry) launch(ctx context.Context, name string) error {
	r.mu.RLock()
	_, ok := r.handlers[name]
	generation := r.generations[name]
	r.mu.RUnlock()
	if ok {
		return nil
	}

	inst, found, err := r.installs.Get(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrPackageNotFound, name)
	}
	host, ok := r.hosts[inst.Runtime]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRuntimeMissing, inst.Runtime)
	}
	p, stop, err := host.Launch(ctx, inst)
	if err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	h := &handle{plugin: p, stop: stop}

	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		h.shutdown()
		return domain.ErrRegistryClosed
	case r.generations[name] != generation:
		r.mu.Unlock()
		h.shutdown()
		r.logger.Debug("discarded handler of replaced installation", "package", name, "version", inst.Version)
		return nil
	}
	r.handlers[name] = h
	r.mu.Unlock()
	r.logger.Debug("plugin launched", "package", name, "runtime", inst.Runtime)
	return nil
}

func (r *Registry) Get(ctx context.Context, name string) (domain.Installation, bool, error) {
	return r.installs.Get(ctx, name)
}

func (r *Registry) List(ctx context.Context) ([]domain.Installation, error) {
	return r.installs.List(ctx)
}

// CheckLifecycle asks the installation's host to start and describe it.
func (r *Registry) CheckLifecycle(ctx context.Context, inst domain.Installation) error {
	host, ok := r.hosts[inst.Runtime]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRuntimeMissing, inst.Runtime)
	}
	return host.CheckLifecycle(ctx, inst)
}

// Close stops every launched handler, leased or not. Further calls fail with
// ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handlers := r.handlers
	retired := r.retired
	r.handlers = map[string]*handle{}
	r.retired = map[*handle]struct{}{}
	r.mu.Unlock()

	for name, h := range handlers {
		h.shutdown()
		r.logger.Debug("plugin stopped", "package", name)
	}
	for h := range retired {
		h.shutdown()
	}
	return r.installs.Close()
}

func (r *Registry) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return domain.ErrRegistryClosed
	}
	return nil
}

func (r *Registry) lockFor(location string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[location]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[location] = lock
	}
	return lock
}

func copyExecutable(src, dst string) (retErr error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open plugin binary: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".install-*")
	if err != nil {
		return fmt.Errorf("create temp binary: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy plugin binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp binary: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("chmod plugin binary: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("install plugin binary: %w", err)
	}
	return nil
}

var errNoBinary = errors.New("binary path is empty")

func fileDigest(path string) (string, error) {
	if path == "" {
		return "", errNoBinary
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

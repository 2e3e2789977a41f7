package out

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"
)

// BuiltinHost serves packages compiled into the host process. A manifest with
// runtime "builtin" names its entry in the catalog.
type BuiltinHost struct {
	mu      sync.RWMutex
	entries map[string]domain.Plugin
}

func NewBuiltinHost() *BuiltinHost {
	return &BuiltinHost{entries: make(map[string]domain.Plugin)}
}

var _ pluginout.Host = (*BuiltinHost)(nil)

// Register adds an entry. Duplicate names return an error.
func (h *BuiltinHost) Register(entry string, p domain.Plugin) error {
	if entry == "" {
		return fmt.Errorf("builtin entry name is required")
	}
	if p == nil {
		return fmt.Errorf("builtin entry %q: plugin is required", entry)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.entries[entry]; exists {
		return fmt.Errorf("builtin entry %q already registered", entry)
	}
	h.entries[entry] = p
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (h *BuiltinHost) MustRegister(entry string, p domain.Plugin) {
	if err := h.Register(entry, p); err != nil {
		panic(err)
	}
}

func (h *BuiltinHost) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *BuiltinHost) Launch(_ context.Context, inst domain.Installation) (domain.Plugin, func(), error) {
	p, err := h.lookup(inst)
	if err != nil {
		return nil, nil, err
	}
	return domain.Restrict(p, inst.Roles), func() {}, nil
}

func (h *BuiltinHost) CheckLifecycle(_ context.Context, inst domain.Installation) error {
	_, err := h.lookup(inst)
	return err
}

func (h *BuiltinHost) lookup(inst domain.Installation) (domain.Plugin, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.entries[inst.Entry]
	if !ok {
		return nil, fmt.Errorf("%w: builtin entry %q for %s", domain.ErrPackageNotFound, inst.Entry, inst.Name)
	}
	return p, nil
}

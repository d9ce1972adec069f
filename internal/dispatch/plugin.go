// Package dispatch routes named actions to the channel plugin that can
// execute them, with capability discovery, authorization gating, and
// cross-channel fallback.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Plugin is the minimal contract every channel plugin satisfies.
// Capabilities beyond the id are optional and discovered via the interfaces
// below; any subset may be absent.
type Plugin interface {
	ID() string
}

// ActionHandler executes a named action. Plugins without it are
// capability-query-only.
type ActionHandler interface {
	HandleAction(ctx context.Context, ac *ActionContext) (*ActionResult, error)
}

// ActionSupporter narrows which actions a handler accepts. A handler
// without it accepts everything.
type ActionSupporter interface {
	SupportsAction(action string) bool
}

// ActionLister enumerates a plugin's action names for capability queries.
type ActionLister interface {
	ListActions() []string
}

// ButtonSupporter and CardSupporter report rich-rendering capabilities.
type ButtonSupporter interface {
	SupportsButtons() bool
}

type CardSupporter interface {
	SupportsCards() bool
}

// Lifecycle is implemented by plugins that hold live connections.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Registry holds the loaded plugins. Constructed once at startup and
// treated as append-only afterwards; dispatch iterates it without mutation.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. Registration order determines cross-channel
// fallback order. Re-registering an id replaces the plugin in place.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := p.ID()
	if _, exists := r.plugins[id]; !exists {
		r.order = append(r.order, id)
	}
	r.plugins[id] = p
}

// Get returns the plugin registered for a channel id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Ordered returns plugins in registration order.
func (r *Registry) Ordered() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// IDs returns the registered channel ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// StartAll starts every plugin implementing Lifecycle. The first failure
// cancels the rest.
func (r *Registry) StartAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range r.Ordered() {
		lc, ok := p.(Lifecycle)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := lc.Start(ctx); err != nil {
				return fmt.Errorf("start %s plugin: %w", p.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// StopAll stops every plugin implementing Lifecycle, collecting all errors.
func (r *Registry) StopAll(ctx context.Context) error {
	g := new(errgroup.Group)
	for _, p := range r.Ordered() {
		lc, ok := p.(Lifecycle)
		if !ok {
			continue
		}
		g.Go(func() error { return lc.Stop(ctx) })
	}
	return g.Wait()
}

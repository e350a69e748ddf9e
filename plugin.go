package omronfins

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Plugin allows extending client behavior (reachability tracking, metrics, etc.).
type Plugin interface {
	// Name must return a unique plugin name.
	Name() string
	// Initialize is called once when the plugin is registered via Use.
	Initialize(*Client) error
}

// Exchange describes one finished round trip.
type Exchange struct {
	Request  []byte
	Response []byte // nil when Err is set
	Err      error
	RTT      time.Duration
}

// ExchangePlugin is notified after every SendAndReceive. Hooks run on the
// caller's goroutine while the exchange lock is held, so they must not block.
type ExchangePlugin interface {
	Plugin
	OnExchange(c *Client, ex Exchange)
}

// pluginManager wraps plugin registration to keep the Client struct focused.
type pluginManager struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

func (pm *pluginManager) use(c *Client, plugins ...Plugin) error {
	for _, p := range plugins {
		if p == nil {
			return fmt.Errorf("plugin is nil")
		}
		name := p.Name()
		if name == "" {
			return fmt.Errorf("plugin name cannot be empty")
		}

		// Reserve the name to avoid duplicate registration races.
		pm.mu.Lock()
		if pm.plugins == nil {
			pm.plugins = make(map[string]Plugin)
		}
		if _, exists := pm.plugins[name]; exists {
			pm.mu.Unlock()
			return fmt.Errorf("plugin %s already registered", name)
		}
		pm.plugins[name] = nil
		pm.mu.Unlock()

		if err := p.Initialize(c); err != nil {
			pm.mu.Lock()
			delete(pm.plugins, name)
			pm.mu.Unlock()
			return fmt.Errorf("initialize plugin %s: %w", name, err)
		}

		pm.mu.Lock()
		pm.plugins[name] = p
		pm.mu.Unlock()
	}

	return nil
}

// names returns the registered plugin names in sorted order.
func (pm *pluginManager) names() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	names := make([]string, 0, len(pm.plugins))
	for name, p := range pm.plugins {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (pm *pluginManager) notifyExchange(c *Client, ex Exchange) {
	pm.mu.RLock()
	var hooks []ExchangePlugin
	for _, p := range pm.plugins {
		if ep, ok := p.(ExchangePlugin); ok {
			hooks = append(hooks, ep)
		}
	}
	pm.mu.RUnlock()

	for _, h := range hooks {
		h.OnExchange(c, ex)
	}
}

// Plugins returns the names of the registered plugins.
func (c *Client) Plugins() []string {
	return c.plugins.names()
}

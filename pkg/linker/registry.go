package linker

import (
	"sort"
	"sync"
)

// discoverable holds linkers that register themselves from init() so that a
// factory can place them ahead of the fallback linker without the caller
// listing them.
//
// Registration happens at startup; reads happen from any goroutine.
var discoverable = struct {
	mu       sync.RWMutex
	registry map[string]GuardingLinker
}{
	registry: make(map[string]GuardingLinker),
}

// RegisterDiscoverable registers l under name, replacing an earlier entry.
// It is safe to call from init() functions.
func RegisterDiscoverable(name string, l GuardingLinker) {
	discoverable.mu.Lock()
	defer discoverable.mu.Unlock()
	discoverable.registry[name] = l
}

// Discoverable returns the registered linkers ordered by name.
func Discoverable() []GuardingLinker {
	discoverable.mu.RLock()
	defer discoverable.mu.RUnlock()
	names := make([]string, 0, len(discoverable.registry))
	for name := range discoverable.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	linkers := make([]GuardingLinker, len(names))
	for i, name := range names {
		linkers[i] = discoverable.registry[name]
	}
	return linkers
}

// DiscoverableNames returns the registered names in order.
func DiscoverableNames() []string {
	discoverable.mu.RLock()
	defer discoverable.mu.RUnlock()
	names := make([]string, 0, len(discoverable.registry))
	for name := range discoverable.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterDiscoverable removes name from the registry.
// Used for testing.
func UnregisterDiscoverable(name string) {
	discoverable.mu.Lock()
	defer discoverable.mu.Unlock()
	delete(discoverable.registry, name)
}

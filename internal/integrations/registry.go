// internal/integrations/registry.go
package integrations

import "sync"

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register woła się z init() pakietu integracji (import z pustym aliasem
// w orkiestratorze włącza integrację do buildu).
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func Get(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

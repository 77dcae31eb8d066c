// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bartek5186/erp2www/internal/erpnext"
	"github.com/bartek5186/erp2www/internal/integrations/importer"
)

// Główny config aplikacji
type Config struct {
	AutoStart        bool           `json:"auto_start"`
	FreshnessMinutes int            `json:"freshness_minutes"` // okno świeżości katalogu (domyślnie 60)
	NetProbeSeconds  int            `json:"net_probe_seconds"` // jak często odświeżać stan interfejsów
	ERPNext          erpnext.Config `json:"erpnext"`
	// nazwa -> surowy JSON integracji (dziś: "importer")
	Integrations map[string]json.RawMessage `json:"integrations"`
}

func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// domyślny config
			rawImp, _ := json.Marshal(importer.Config{
				WatchDir: "~/erp2www/imports",
				PollSec:  10,
			})
			cfg := &Config{
				AutoStart:        true,
				FreshnessMinutes: 60,
				NetProbeSeconds:  5,
				ERPNext: erpnext.Config{
					BaseURL:  "https://erp.example.com",
					APIToken: "key:secret",
				},
				Integrations: map[string]json.RawMessage{
					"importer": rawImp,
				},
			}
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Integrations == nil {
		cfg.Integrations = map[string]json.RawMessage{}
	}
	return &cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// Helper do odczytu konkretnej integracji do struktury docelowej
func (c *Config) UnmarshalIntegration(name string, v any) error {
	raw, ok := c.Integrations[name]
	if !ok {
		return fmt.Errorf("brak integracji %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}

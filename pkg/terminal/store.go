package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/impterm/impterm-go/pkg/persistence"
)

// OpenStore opens the configured persistence backend.
func OpenStore(cfg StoreConfig, logger *slog.Logger) (persistence.Store, error) {
	if cfg.Backend != StoreMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	switch cfg.Backend {
	case StoreMemory:
		return persistence.NewMemoryStore(), nil
	case StoreFile:
		return persistence.OpenFileStore(cfg.Path, persistence.Namespace)
	case StoreSQLite:
		return persistence.OpenSQLite(persistence.SQLiteConfig{
			Path:   cfg.Path,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

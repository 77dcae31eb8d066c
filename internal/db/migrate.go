package db

import (
	"fmt"
)

// Migrate tworzy schemat bazy (create-only, bez down-migracji).
// Idempotentne — AutoMigrate dokłada brakujące tabele/indeksy i nic nie kasuje.
func (h *Handle) Migrate() error {
	if err := h.DB.AutoMigrate(
		&Product{},
		&Zone{},
		&WishlistItem{},
		&SessionSnapshot{},
		&SyncQueueItem{},
		&ImportFile{},
		&KV{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}

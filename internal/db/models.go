// internal/db/models.go
package db

import "time"

// products — lokalne lustro katalogu z ERPNext.
// Rekordy są nadpisywane hurtowo przy każdym pełnym syncu (upsert po item_code),
// pojedynczych pól nie scalamy.
type Product struct {
	ItemCode       string `gorm:"primaryKey;column:item_code"`
	ItemName       string
	Brand          string `gorm:"index"`
	Category       string `gorm:"index"`
	Zone           string `gorm:"index"`
	Disabled       bool
	StockInZone    float64
	TotalStock     float64
	UOM            string `gorm:"column:uom"`
	Image          string
	PrimaryBarcode string `gorm:"index"`
	BarcodesJSON   string `gorm:"type:text"` // wszystkie znane kody kreskowe (JSON array)
	Price          float64
}

// zones — strefy ekspozycji wyprowadzone z katalogu
type Zone struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

// wishlist_items
type WishlistItem struct {
	ItemCode string    `gorm:"primaryKey;column:item_code"`
	AddedAt  time.Time `gorm:"index"`
}

// session_snapshots — migawka sesji klienta (kiosk)
type SessionSnapshot struct {
	ID        string `gorm:"primaryKey"`
	DataJSON  string `gorm:"type:text"`
	UpdatedAt time.Time
}

// sync_queue_items — outbox mutacji wykonanych offline.
// Wpisów nigdy nie kasujemy, tylko flagujemy synced (ślad audytowy).
type SyncQueueItem struct {
	ID          uint      `gorm:"primaryKey"`
	Kind        string    `gorm:"index"` // wishlist-add / wishlist-remove / session-update
	PayloadJSON string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index;autoCreateTime"`
	Synced      bool      `gorm:"index"`
}

// import_files — rejestr wczytanych plików eksportu katalogu (dedup po SHA)
type ImportFile struct {
	ImportID    uint   `gorm:"primaryKey;column:import_id"`
	Filename    string `gorm:"uniqueIndex"`
	SHA256      string `gorm:"uniqueIndex"`
	SizeBytes   int64
	Status      int       `gorm:"index"` // 0=pending, 1=done, 2=error
	LastError   string    `gorm:"type:text"`
	ReceivedAt  time.Time `gorm:"autoCreateTime"`
	ProcessedAt *time.Time
}

// kvs — małe flagi procesu (m.in. znacznik ostatniego syncu)
type KV struct {
	K string `gorm:"primaryKey"`
	V string
}

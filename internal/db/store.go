// internal/db/store.go
//
// Operacje magazynu trwałego. Wszystkie zapisy to upsert po kluczu głównym
// (last-write-wins), SQLite serializuje konflikty po swojej stronie —
// wołający nie potrzebują własnych locków. Brak atomowości między tabelami:
// zapis do products i do sync_queue_items to dwa niezależne commity.
package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ---- products ----

func (h *Handle) PutProduct(p *Product) error {
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_code"}},
		UpdateAll: true,
	}).Create(p).Error
}

// PutProducts upsertuje całą partię w jednej transakcji —
// albo wejdzie wszystko, albo nic.
func (h *Handle) PutProducts(ps []Product) error {
	if len(ps) == 0 {
		return nil
	}
	return h.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_code"}},
			UpdateAll: true,
		}).CreateInBatches(ps, 500).Error
	})
}

func (h *Handle) AllProducts() ([]Product, error) {
	var out []Product
	err := h.DB.Find(&out).Error
	return out, err
}

// ProductByCode zwraca nil (bez błędu), gdy rekordu nie ma.
func (h *Handle) ProductByCode(code string) (*Product, error) {
	var p Product
	err := h.DB.Where("item_code = ?", code).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (h *Handle) ProductsByZone(zone string) ([]Product, error) {
	var out []Product
	err := h.DB.Where("zone = ?", zone).Find(&out).Error
	return out, err
}

func (h *Handle) ProductsByCategory(category string) ([]Product, error) {
	var out []Product
	err := h.DB.Where("category = ?", category).Find(&out).Error
	return out, err
}

func (h *Handle) ProductsByBrand(brand string) ([]Product, error) {
	var out []Product
	err := h.DB.Where("brand = ?", brand).Find(&out).Error
	return out, err
}

func (h *Handle) DeleteProduct(code string) error {
	return h.DB.Where("item_code = ?", code).Delete(&Product{}).Error
}

func (h *Handle) ClearProducts() error {
	return h.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Product{}).Error
}

func (h *Handle) CountProducts() (int64, error) {
	var n int64
	err := h.DB.Model(&Product{}).Count(&n).Error
	return n, err
}

// ---- zones ----

// ReplaceZones podmienia całą tabelę stref (wyprowadzana z payloadu katalogu).
func (h *Handle) ReplaceZones(zs []Zone) error {
	if err := h.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Zone{}).Error; err != nil {
		return err
	}
	if len(zs) == 0 {
		return nil
	}
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&zs).Error
}

func (h *Handle) AllZones() ([]Zone, error) {
	var out []Zone
	err := h.DB.Order("id").Find(&out).Error
	return out, err
}

// ---- wishlist ----

func (h *Handle) PutWishlistItem(w *WishlistItem) error {
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_code"}},
		UpdateAll: true,
	}).Create(w).Error
}

func (h *Handle) AllWishlistItems() ([]WishlistItem, error) {
	var out []WishlistItem
	err := h.DB.Order("added_at").Find(&out).Error
	return out, err
}

func (h *Handle) DeleteWishlistItem(code string) error {
	return h.DB.Where("item_code = ?", code).Delete(&WishlistItem{}).Error
}

func (h *Handle) CountWishlistItems() (int64, error) {
	var n int64
	err := h.DB.Model(&WishlistItem{}).Count(&n).Error
	return n, err
}

// ---- session ----

// PutSession nadaje id, jeśli wołający go nie przyniósł.
func (h *Handle) PutSession(s *SessionSnapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = time.Now()
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(s).Error
}

func (h *Handle) SessionByID(id string) (*SessionSnapshot, error) {
	var s SessionSnapshot
	err := h.DB.Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ---- sync queue (outbox) ----

func (h *Handle) AppendQueueItem(it *SyncQueueItem) error {
	return h.DB.Create(it).Error
}

// PendingQueueItems czyta po indeksie synced, najstarsze najpierw
// (id rośnie monotonicznie z kolejnością dopisywania).
func (h *Handle) PendingQueueItems() ([]SyncQueueItem, error) {
	var out []SyncQueueItem
	err := h.DB.Where("synced = ?", false).Order("id").Find(&out).Error
	return out, err
}

// MarkQueueItemSynced jest idempotentne — ponowne ustawienie flagi to no-op.
func (h *Handle) MarkQueueItemSynced(id uint) error {
	return h.DB.Model(&SyncQueueItem{}).Where("id = ?", id).Update("synced", true).Error
}

func (h *Handle) CountPendingQueueItems() (int64, error) {
	var n int64
	err := h.DB.Model(&SyncQueueItem{}).Where("synced = ?", false).Count(&n).Error
	return n, err
}

// ---- kv flags ----

func (h *Handle) SetFlag(k, v string) error {
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		UpdateAll: true,
	}).Create(&KV{K: k, V: v}).Error
}

// GetFlag zwraca "" (bez błędu), gdy klucza nie ma.
func (h *Handle) GetFlag(k string) (string, error) {
	var kv KV
	err := h.DB.Where("k = ?", k).Take(&kv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return kv.V, nil
}

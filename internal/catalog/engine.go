// internal/catalog/engine.go
//
// Silnik synchronizacji katalogu: jeden pełny fetch z ERPNext → upsert
// wszystkiego do lokalnej bazy. Cały payload ląduje najpierw w pamięci,
// więc nie ma częściowych zapisów ze streamingu. Silnik nie sprawdza
// stanu sieci — to odpowiedzialność wołającego (orkiestratora).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/erpnext"
)

// FreshnessWindow — po tym czasie cache katalogu uznajemy za przeterminowany.
const FreshnessWindow = time.Hour

const lastSyncFlag = "last-sync"

// FetchFunc — kontrakt na zdalny katalog (w produkcji erpnext.Client).
type FetchFunc func(ctx context.Context) ([]erpnext.ZoneProduct, error)

type Engine struct {
	log   zerolog.Logger
	store *db.Handle
	fetch FetchFunc
}

func New(log zerolog.Logger, store *db.Handle, fetch FetchFunc) *Engine {
	return &Engine{log: log, store: store, fetch: fetch}
}

// SyncCatalog pobiera cały zdalny katalog i upsertuje go do tabeli products.
// Niczego nie filtruje (ukrywanie disabled to warstwa prezentacji).
// Znacznik last-sync zapisuje się dopiero PO udanym zapisie wszystkich
// rekordów; przy błędzie fetch/parse/zapisu zostaje poprzednia wartość.
// Zwraca liczbę zapisanych rekordów.
func (e *Engine) SyncCatalog(ctx context.Context) (int, error) {
	items, err := e.fetch(ctx)
	if err != nil {
		return 0, err // ErrFetchFailed / ErrParseFailed bez opakowania — rozróżnia je orkiestrator
	}

	products := make([]db.Product, 0, len(items))
	zoneSet := map[string]struct{}{}
	for _, it := range items {
		products = append(products, toProduct(it))
		if it.Zone != "" {
			zoneSet[it.Zone] = struct{}{}
		}
	}

	if err := e.store.PutProducts(products); err != nil {
		return 0, fmt.Errorf("upsert products: %w", err)
	}
	if err := e.store.ReplaceZones(zonesFromSet(zoneSet)); err != nil {
		return 0, fmt.Errorf("replace zones: %w", err)
	}

	now := time.Now()
	if err := e.store.SetFlag(lastSyncFlag, now.Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("set last-sync: %w", err)
	}

	e.log.Info().Int("count", len(products)).Msg("katalog zsynchronizowany")
	return len(products), nil
}

// LastSync zwraca znacznik ostatniego udanego syncu; zero gdy brak.
func (e *Engine) LastSync() (time.Time, error) {
	v, err := e.store.GetFlag(lastSyncFlag)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		// uszkodzona flaga = brak syncu
		return time.Time{}, nil
	}
	return ts, nil
}

// NeedsSync — granica okna świeżości jest domykająca: dokładnie godzina
// od ostatniego syncu już kwalifikuje do odświeżenia.
func (e *Engine) NeedsSync(window time.Duration) bool {
	ls, err := e.LastSync()
	if err != nil {
		return true
	}
	if ls.IsZero() {
		return true
	}
	return time.Since(ls) >= window
}

func toProduct(it erpnext.ZoneProduct) db.Product {
	barcodes, _ := json.Marshal(it.AllBarcodes)
	return db.Product{
		ItemCode:       it.ItemCode,
		ItemName:       it.ItemName,
		Brand:          it.Brand,
		Category:       it.CategoryList,
		Zone:           it.Zone,
		Disabled:       it.Disable != 0,
		StockInZone:    it.StockInZone,
		TotalStock:     it.TotalStock,
		UOM:            it.UOM,
		Image:          it.Image,
		PrimaryBarcode: it.PrimaryBarcode,
		BarcodesJSON:   string(barcodes),
		Price:          it.Price,
	}
}

func zonesFromSet(set map[string]struct{}) []db.Zone {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	zs := make([]db.Zone, 0, len(ids))
	for _, id := range ids {
		zs = append(zs, db.Zone{ID: id, Name: id})
	}
	return zs
}

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/erpnext"
)

func testStore(t *testing.T) *db.Handle {
	t.Helper()
	h, err := db.Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return h
}

func fixedFetch(items []erpnext.ZoneProduct, err error) FetchFunc {
	return func(ctx context.Context) ([]erpnext.ZoneProduct, error) {
		return items, err
	}
}

var sampleCatalog = []erpnext.ZoneProduct{
	{Zone: "A", ItemCode: "LED-001", ItemName: "Panel 60x60", Brand: "Lumax",
		CategoryList: "Panele", Disable: 0, StockInZone: 5, TotalStock: 20,
		UOM: "szt", Image: "/files/1.jpg", PrimaryBarcode: "590111",
		AllBarcodes: []string{"590111", "590112"}, Price: 120},
	{Zone: "A", ItemCode: "LED-002", ItemName: "Taśma 5m", Brand: "Lumax",
		CategoryList: "Taśmy", Disable: 1, StockInZone: 0, TotalStock: 3,
		UOM: "szt", Price: 45},
	{Zone: "B", ItemCode: "LED-003", ItemName: "Żarówka E27", Brand: "Ora",
		CategoryList: "Żarówki", Disable: 0, StockInZone: 100, TotalStock: 250,
		UOM: "szt", Price: 12.5},
}

// Scenario: empty store, remote returns 3 products.
func TestSyncCatalogWritesAllRecords(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(sampleCatalog, nil))

	before := time.Now()
	n, err := e.SyncCatalog(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 written, got %d", n)
	}

	all, err := h.AllProducts()
	if err != nil || len(all) != 3 {
		t.Fatalf("AllProducts = %d, err %v; want 3", len(all), err)
	}

	ls, err := e.LastSync()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if ls.Before(before.Add(-time.Second)) || ls.After(time.Now().Add(time.Second)) {
		t.Errorf("last-sync not set to now: %v", ls)
	}

	// zones derived from the payload, replaced wholesale
	zs, _ := h.AllZones()
	if len(zs) != 2 || zs[0].ID != "A" || zs[1].ID != "B" {
		t.Errorf("zones mismatch: %+v", zs)
	}
}

// Round-trip: a synced record reads back equal in all fields.
func TestSyncCatalogRoundTrip(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(sampleCatalog, nil))
	if _, err := e.SyncCatalog(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	p, err := h.ProductByCode("LED-001")
	if err != nil || p == nil {
		t.Fatalf("get: %v, %v", p, err)
	}
	want := toProduct(sampleCatalog[0])
	if *p != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *p, want)
	}
}

// Scenario: remote fetch fails → error surfaces, cache and last-sync untouched.
func TestSyncCatalogFetchFailureKeepsCache(t *testing.T) {
	h := testStore(t)

	ok := New(zerolog.Nop(), h, fixedFetch(sampleCatalog, nil))
	if _, err := ok.SyncCatalog(context.Background()); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	prior, _ := ok.LastSync()

	bad := New(zerolog.Nop(), h, fixedFetch(nil, erpnext.ErrFetchFailed))
	_, err := bad.SyncCatalog(context.Background())
	if !errors.Is(err, erpnext.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}

	after, _ := bad.LastSync()
	if !after.Equal(prior) {
		t.Errorf("last-sync changed on failure: %v → %v", prior, after)
	}
	all, _ := h.AllProducts()
	if len(all) != 3 {
		t.Errorf("cached products must remain readable, got %d", len(all))
	}
}

func TestSyncCatalogParseFailurePassesThrough(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(nil, erpnext.ErrParseFailed))
	_, err := e.SyncCatalog(context.Background())
	if !errors.Is(err, erpnext.ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
}

func TestNeedsSyncBoundary(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(nil, nil))

	// never synced → due
	if !e.NeedsSync(FreshnessWindow) {
		t.Error("empty last-sync must require sync")
	}

	// exactly at the boundary → due (inclusive)
	at := time.Now().Add(-FreshnessWindow)
	if err := h.SetFlag("last-sync", at.Format(time.RFC3339)); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if !e.NeedsSync(FreshnessWindow) {
		t.Error("boundary must be inclusive of needs-sync")
	}

	// fresh → not due
	if err := h.SetFlag("last-sync", time.Now().Format(time.RFC3339)); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if e.NeedsSync(FreshnessWindow) {
		t.Error("fresh cache must not require sync")
	}
}

func TestNeedsSyncCorruptFlag(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(nil, nil))
	if err := h.SetFlag("last-sync", "not-a-timestamp"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if !e.NeedsSync(FreshnessWindow) {
		t.Error("corrupt last-sync flag must count as never-synced")
	}
}

func TestPresentationQueriesFilterDisabled(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(sampleCatalog, nil))
	if _, err := e.SyncCatalog(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// LED-002 in zone A is disabled: synced to the store but not visible
	visible, err := e.VisibleProductsByZone("A")
	if err != nil {
		t.Fatalf("visible: %v", err)
	}
	if len(visible) != 1 || visible[0].ItemCode != "LED-001" {
		t.Errorf("disabled product leaked into presentation: %+v", visible)
	}

	cats, err := e.CategoriesByZone("A")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Category != "Panele" || cats[0].ProductCount != 1 {
		t.Errorf("categories mismatch: %+v", cats)
	}
	if len(cats[0].Brands) != 1 || cats[0].Brands[0] != "Lumax" {
		t.Errorf("brands mismatch: %+v", cats[0].Brands)
	}

	brands, err := e.BrandsByZoneAndCategory("B", "Żarówki")
	if err != nil {
		t.Fatalf("brands: %v", err)
	}
	if len(brands) != 1 || brands[0].Brand != "Ora" || brands[0].ProductCount != 1 {
		t.Errorf("brand summary mismatch: %+v", brands)
	}
}

func TestStats(t *testing.T) {
	h := testStore(t)
	e := New(zerolog.Nop(), h, fixedFetch(sampleCatalog, nil))
	if _, err := e.SyncCatalog(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := h.PutWishlistItem(&db.WishlistItem{ItemCode: "LED-001", AddedAt: time.Now()}); err != nil {
		t.Fatalf("wishlist: %v", err)
	}
	if err := h.AppendQueueItem(&db.SyncQueueItem{Kind: "wishlist-add", PayloadJSON: "{}"}); err != nil {
		t.Fatalf("queue: %v", err)
	}

	st, err := e.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Products != 3 || st.Wishlist != 1 || st.PendingSync != 1 {
		t.Errorf("stats mismatch: %+v", st)
	}
	if st.LastSync.IsZero() {
		t.Error("stats should carry last sync time")
	}
}

// internal/catalog/queries.go
//
// Zapytania pod prezentację — czytają wyłącznie lokalną bazę, więc
// działają też offline. Tu (i tylko tu) odfiltrowujemy produkty disabled.
package catalog

import (
	"sort"
	"time"

	"github.com/bartek5186/erp2www/internal/db"
)

type CategorySummary struct {
	Category     string
	ProductCount int
	Brands       []string
}

type BrandSummary struct {
	Brand        string
	ProductCount int
}

// Stats — liczby pod widok "pending sync" / diagnostykę.
type Stats struct {
	Products    int64
	Wishlist    int64
	PendingSync int64
	LastSync    time.Time
}

// VisibleProductsByZone zwraca produkty strefy bez pozycji disabled.
func (e *Engine) VisibleProductsByZone(zone string) ([]db.Product, error) {
	ps, err := e.store.ProductsByZone(zone)
	if err != nil {
		return nil, err
	}
	out := ps[:0]
	for _, p := range ps {
		if !p.Disabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// CategoriesByZone grupuje widoczne produkty strefy po kategorii,
// posortowane malejąco po liczebności.
func (e *Engine) CategoriesByZone(zone string) ([]CategorySummary, error) {
	ps, err := e.VisibleProductsByZone(zone)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	brands := map[string]map[string]struct{}{}
	for _, p := range ps {
		cat := p.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		counts[cat]++
		if brands[cat] == nil {
			brands[cat] = map[string]struct{}{}
		}
		if p.Brand != "" {
			brands[cat][p.Brand] = struct{}{}
		}
	}

	out := make([]CategorySummary, 0, len(counts))
	for cat, n := range counts {
		bs := make([]string, 0, len(brands[cat]))
		for b := range brands[cat] {
			bs = append(bs, b)
		}
		sort.Strings(bs)
		out = append(out, CategorySummary{Category: cat, ProductCount: n, Brands: bs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductCount != out[j].ProductCount {
			return out[i].ProductCount > out[j].ProductCount
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// BrandsByZoneAndCategory — rozbicie kategorii w strefie na marki.
func (e *Engine) BrandsByZoneAndCategory(zone, category string) ([]BrandSummary, error) {
	ps, err := e.VisibleProductsByZone(zone)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, p := range ps {
		cat := p.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		if cat != category {
			continue
		}
		brand := p.Brand
		if brand == "" {
			brand = "No Brand"
		}
		counts[brand]++
	}

	out := make([]BrandSummary, 0, len(counts))
	for b, n := range counts {
		out = append(out, BrandSummary{Brand: b, ProductCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductCount != out[j].ProductCount {
			return out[i].ProductCount > out[j].ProductCount
		}
		return out[i].Brand < out[j].Brand
	})
	return out, nil
}

// Stats liczy stan cache — działa offline, bo wszystko jest lokalne.
func (e *Engine) Stats() (Stats, error) {
	var st Stats
	var err error
	if st.Products, err = e.store.CountProducts(); err != nil {
		return st, err
	}
	if st.Wishlist, err = e.store.CountWishlistItems(); err != nil {
		return st, err
	}
	if st.PendingSync, err = e.store.CountPendingQueueItems(); err != nil {
		return st, err
	}
	st.LastSync, err = e.LastSync()
	return st, err
}

// internal/erpnext/erpnext.go
//
// Klient HTTP do ERPNext — jedyne źródło zdalnego katalogu.
// Zwraca pełną listę produktów ze wszystkich stref jednym strzałem.
package erpnext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrFetchFailed — błąd transportu lub status != 2xx; do ponowienia
	// przy następnym reconnect/freshness check, nigdy w ciasnej pętli.
	ErrFetchFailed = errors.New("erpnext fetch failed")
	// ErrParseFailed — odpowiedź nie jest poprawnym payloadem katalogu.
	// Retry jak wyżej, ale logowane osobno (diagnostyka po stronie ERP).
	ErrParseFailed = errors.New("erpnext parse failed")
)

const zoneProductsMethod = "/api/method/qcshr.controller.api.zone_products_list"

type Config struct {
	BaseURL  string `json:"base_url"`  // https://erp.example.com
	APIToken string `json:"api_token"` // "key:secret" do nagłówka Authorization
}

// ZoneProduct — rekord katalogu w formacie zwracanym przez ERPNext.
type ZoneProduct struct {
	Zone           string   `json:"zone"`
	ItemCode       string   `json:"item_code"`
	ItemName       string   `json:"item_name"`
	Brand          string   `json:"brand"`
	CategoryList   string   `json:"category_list"`
	Disable        int      `json:"disable"`
	StockInZone    float64  `json:"stock_in_zone"`
	TotalStock     float64  `json:"total_stock_all_warehouses"`
	UOM            string   `json:"uom"`
	Image          string   `json:"image"`
	PrimaryBarcode string   `json:"primary_barcode"`
	AllBarcodes    []string `json:"all_barcodes"`
	Price          float64  `json:"price"`
}

// ERPNext opakowuje wyniki metod w {"message": ...}
type listEnvelope struct {
	Message []ZoneProduct `json:"message"`
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		// brak własnego deadline'u per operacja — polegamy na timeoutcie klienta
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchZoneProducts pobiera cały katalog do pamięci.
// Nie filtruje niczego — ukrywanie disabled to sprawa warstwy prezentacji.
func (c *Client) FetchZoneProducts(ctx context.Context) ([]ZoneProduct, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base_url: %v", ErrFetchFailed, err)
	}
	base.Path = zoneProductsMethod

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "token "+c.cfg.APIToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http %d", ErrFetchFailed, resp.StatusCode)
	}

	var env listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return env.Message, nil
}

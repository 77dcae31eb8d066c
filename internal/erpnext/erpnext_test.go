package erpnext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchZoneProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token key:secret" {
			t.Errorf("bad auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":[
			{"zone":"A","item_code":"LED-001","item_name":"Panel 60x60","brand":"Lumax",
			 "category_list":"Panele","disable":0,"stock_in_zone":12,
			 "total_stock_all_warehouses":40,"uom":"szt","image":"/files/led001.jpg",
			 "primary_barcode":"5901234567890","all_barcodes":["5901234567890"],"price":99.9}
		]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIToken: "key:secret"})
	got, err := c.FetchZoneProducts(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 product, got %d", len(got))
	}
	p := got[0]
	if p.ItemCode != "LED-001" || p.Zone != "A" || p.Price != 99.9 || p.Disable != 0 {
		t.Errorf("decoded product mismatch: %+v", p)
	}
	if len(p.AllBarcodes) != 1 || p.AllBarcodes[0] != "5901234567890" {
		t.Errorf("barcodes mismatch: %+v", p.AllBarcodes)
	}
}

func TestFetchZoneProductsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.FetchZoneProducts(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetchZoneProductsTransportError(t *testing.T) {
	// closed server → connection refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.FetchZoneProducts(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetchZoneProductsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.FetchZoneProducts(context.Background())
	if !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
	if errors.Is(err, ErrFetchFailed) {
		t.Error("parse failure must stay distinct from fetch failure")
	}
}

func TestFetchZoneProductsEmptyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	got, err := c.FetchZoneProducts(context.Background())
	if err != nil {
		t.Fatalf("empty catalog is not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %d", len(got))
	}
}

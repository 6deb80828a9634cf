package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "pricewatch/pkg/logx"
)

const sampleBody = `{
	"sku": 6513602,
	"name": "Epson LS800 Black",
	"salePrice": 2999.99,
	"regularPrice": 3499.99,
	"onSale": true,
	"dollarSavings": 500.0,
	"percentSavings": 14.3,
	"onlineAvailability": true,
	"url": "https://www.bestbuy.com/site/6513602.p"
}`

func TestFetchParsesProduct(t *testing.T) {
	t.Parallel()
	var gotPath, gotKey, gotShow string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		gotShow = r.URL.Query().Get("show")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logx.Nop())
	p, err := c.Fetch(context.Background(), "test-key", "6513602")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotPath != "/products/6513602.json" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("apiKey = %s", gotKey)
	}
	if gotShow != showFields {
		t.Fatalf("show = %s", gotShow)
	}

	if p.Name != "Epson LS800 Black" || p.SalePrice != 2999.99 || p.RegularPrice != 3499.99 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if !p.OnSale || !p.Available || p.DollarSavings != 500 {
		t.Fatalf("unexpected flags: %+v", p)
	}
	if p.SKU != "6513602" {
		t.Fatalf("SKU = %s", p.SKU)
	}
}

func TestFetchEmptyKey(t *testing.T) {
	t.Parallel()
	c := New(Options{BaseURL: "http://127.0.0.1:0"}, logx.Nop())
	if _, err := c.Fetch(context.Background(), "  ", "1"); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestFetchNotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logx.Nop())
	_, err := c.Fetch(context.Background(), "k", "9999999")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if nf.SKU != "9999999" {
		t.Fatalf("SKU = %s", nf.SKU)
	}
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logx.Nop())
	_, err := c.Fetch(context.Background(), "k", "1")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusForbidden {
		t.Fatalf("Code = %d", se.Code)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logx.Nop())
	if _, err := c.Fetch(context.Background(), "k", "1"); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestCurrentPriceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "solana" {
			t.Fatalf("应请求 solana, 实际 %s", r.URL.Query().Get("ids"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"solana":{"usd":142.35}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	got, err := c.CurrentPrice(context.Background(), "solana")
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("142.35")) {
		t.Fatalf("期望价格 142.35, 实际 %s", got)
	}
}

func TestCurrentPriceMissingQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := c.CurrentPrice(context.Background(), "solana"); err == nil {
		t.Fatal("缺少报价应返回错误")
	}
}

func TestTickerRefreshAndStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"solana":{"usd":100}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	ticker := NewTicker(c, "solana", 10*time.Millisecond, zerolog.Nop())
	ticker.Start(context.Background())
	defer ticker.Stop()

	deadline := time.After(time.Second)
	for {
		if q := ticker.Current(); q.Price != nil {
			if !q.Price.Equal(decimal.NewFromInt(100)) {
				t.Fatalf("期望价格 100, 实际 %s", q.Price)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("价格刷新超时")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFormatUSDUnknownPrice(t *testing.T) {
	var q Quote
	if got := q.FormatUSD(decimal.NewFromInt(10)); got != "--" {
		t.Fatalf("无价格时应显示 --, 实际 %q", got)
	}

	v := decimal.NewFromInt(2)
	q = Quote{Price: &v}
	if got := q.FormatUSD(decimal.RequireFromString("1.5")); got != "$3.00" {
		t.Fatalf("USD 格式化不正确: %q", got)
	}
}

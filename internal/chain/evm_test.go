package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEVMListHoldingsMultichain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("解析请求失败: %v", err)
		}
		if req["method"] != "ankr_getAccountBalance" {
			t.Fatalf("unexpected method: %v", req["method"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"assets": []map[string]any{
					{
						"contractAddress":   "0xaaa",
						"tokenSymbol":       "JUNK",
						"tokenName":         "Junk Token",
						"tokenType":         "ERC20",
						"tokenDecimals":     18,
						"balance":           "0.000001",
						"balanceRawInteger": "1000000000000",
						"balanceUsd":        "0.000002",
					},
					{
						"tokenSymbol": "BNB",
						"tokenType":   "NATIVE",
						"balance":     "1.5",
						"balanceUsd":  "900",
					},
				},
			},
		})
	}))
	defer srv.Close()

	p := NewEVMProvider(EVMOptions{MultichainURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	holdings, err := p.ListHoldings(context.Background(), "0xowner")
	if err != nil {
		t.Fatalf("ListHoldings 应成功: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("应返回 2 项持仓, 实际 %d", len(holdings))
	}
	if holdings[0].USDValue == nil || holdings[0].USDValue.String() != "0.000002" {
		t.Fatalf("USD 估值解析不正确: %+v", holdings[0].USDValue)
	}
	if holdings[0].RawBalance != "1000000000000" {
		t.Fatalf("raw balance 不应经过浮点转换: %s", holdings[0].RawBalance)
	}
	if !holdings[1].Native {
		t.Fatal("NATIVE 资产应标记为 native")
	}
}

func TestEVMListHoldingsAPIErrorNoFallbackRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": -32000, "message": "capacity exceeded"},
		})
	}))
	defer srv.Close()

	// No fallback RPC configured: the provider error must surface.
	p := NewEVMProvider(EVMOptions{MultichainURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := p.ListHoldings(context.Background(), "0xowner"); err == nil {
		t.Fatal("API 出错且无回退 RPC 时应返回错误")
	}
}

func TestEVMSignAndSendValidation(t *testing.T) {
	p := NewEVMProvider(EVMOptions{}, zerolog.Nop())

	if _, err := p.SignAndSend(context.Background(), nil); err == nil {
		t.Fatal("空批次应报错")
	}
}

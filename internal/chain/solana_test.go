package chain

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestSolanaMissingConfig(t *testing.T) {
	p := NewSolanaProvider(SolanaOptions{}, zerolog.Nop())
	if _, err := p.ListHoldings(context.Background(), "owner"); err == nil {
		t.Fatal("未配置 RPC 时应报错")
	}

	p = NewSolanaProvider(SolanaOptions{RPCURL: "http://localhost:8899"}, zerolog.Nop())
	if _, err := p.SignAndSend(context.Background(), nil); err == nil {
		t.Fatal("缺少操作者私钥应报错")
	}
}

func TestSelectionActionKind(t *testing.T) {
	if (Selection{Chain: Solana}).ActionKind() != "close" {
		t.Fatal("solana 应使用 close 策略")
	}
	if (Selection{Chain: BNB}).ActionKind() != "burn_transfer" {
		t.Fatal("bnb 应使用 burn_transfer 策略")
	}
}

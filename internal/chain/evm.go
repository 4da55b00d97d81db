package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dustsweep/internal/dust"
)

const (
	// BurnAddress receives swept dust tokens.
	BurnAddress = "0x000000000000000000000000000000000000dEaD"

	erc20ABIJSON = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

	sweepGasLimit = 100_000
)

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// EVMOptions parameterise the balance-model provider.
type EVMOptions struct {
	// RPCURL is the JSON-RPC endpoint used for balance fallback and
	// transaction submission.
	RPCURL string
	// MultichainURL is the Ankr multichain endpoint serving priced token
	// balances.
	MultichainURL string
	// Blockchain is the Ankr chain selector, e.g. "bsc".
	Blockchain string
	// OperatorKey is the hex private key used to sign sweep transfers.
	OperatorKey string
	ChainID     int64
	Timeout     time.Duration
	// ConfirmTimeout bounds receipt polling.
	ConfirmTimeout time.Duration
}

// EVMProvider enumerates priced token balances and sweeps dust tokens to
// the burn address, one transfer per token contract.
type EVMProvider struct {
	opts       EVMOptions
	logger     zerolog.Logger
	httpClient *http.Client

	clientMux sync.Mutex
	client    *ethclient.Client
}

// NewEVMProvider 构造 EVM 提供者。
func NewEVMProvider(opts EVMOptions, logger zerolog.Logger) *EVMProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 120 * time.Second
	}
	if opts.Blockchain == "" {
		opts.Blockchain = "bsc"
	}
	return &EVMProvider{
		opts:       opts,
		logger:     logger.With().Str("component", "evm_provider").Logger(),
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (p *EVMProvider) getClient(ctx context.Context) (*ethclient.Client, error) {
	p.clientMux.Lock()
	defer p.clientMux.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.opts.RPCURL == "" {
		return nil, errors.New("evm rpc url not configured")
	}
	client, err := ethclient.DialContext(ctx, p.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

type ankrBalanceRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  ankrBalanceArgs `json:"params"`
	ID      int             `json:"id"`
}

type ankrBalanceArgs struct {
	Blockchain      []string `json:"blockchain"`
	WalletAddress   string   `json:"walletAddress"`
	OnlyWhitelisted bool     `json:"onlyWhitelisted"`
}

type ankrBalanceResponse struct {
	Result *struct {
		Assets []ankrAsset `json:"assets"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type ankrAsset struct {
	ContractAddress   string `json:"contractAddress"`
	TokenSymbol       string `json:"tokenSymbol"`
	TokenName         string `json:"tokenName"`
	TokenType         string `json:"tokenType"`
	TokenDecimals     uint8  `json:"tokenDecimals"`
	Balance           string `json:"balance"`
	BalanceRawInteger string `json:"balanceRawInteger"`
	BalanceUsd        string `json:"balanceUsd"`
}

// ListHoldings queries the multichain balance API for priced holdings. When
// the API fails it falls back to the bare native balance so the scan still
// reports a clean wallet instead of failing outright.
func (p *EVMProvider) ListHoldings(ctx context.Context, owner string) ([]dust.RawHolding, error) {
	holdings, err := p.listMultichain(ctx, owner)
	if err == nil {
		return holdings, nil
	}

	p.logger.Warn().Err(err).Msg("multichain balance API failed, falling back to native balance")

	fallback, fbErr := p.nativeBalanceOnly(ctx, owner)
	if fbErr != nil {
		return nil, &dust.ProviderError{Op: "list holdings", Err: fbErr}
	}
	return fallback, nil
}

func (p *EVMProvider) listMultichain(ctx context.Context, owner string) ([]dust.RawHolding, error) {
	if p.opts.MultichainURL == "" {
		return nil, errors.New("multichain url not configured")
	}

	payload := ankrBalanceRequest{
		JSONRPC: "2.0",
		Method:  "ankr_getAccountBalance",
		Params: ankrBalanceArgs{
			Blockchain:      []string{p.opts.Blockchain},
			WalletAddress:   owner,
			OnlyWhitelisted: false,
		},
		ID: 1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.MultichainURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("multichain api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out ankrBalanceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("multichain api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == nil {
		return nil, errors.New("multichain api returned no result")
	}

	holdings := make([]dust.RawHolding, 0, len(out.Result.Assets))
	for _, asset := range out.Result.Assets {
		balance, err := decimal.NewFromString(asset.Balance)
		if err != nil {
			balance = decimal.Zero
		}

		h := dust.RawHolding{
			Address:    asset.ContractAddress,
			AssetID:    asset.ContractAddress,
			Symbol:     asset.TokenSymbol,
			Name:       asset.TokenName,
			Balance:    balance,
			RawBalance: asset.BalanceRawInteger,
			Decimals:   asset.TokenDecimals,
			Native:     asset.TokenType == "NATIVE",
		}
		if usd, err := decimal.NewFromString(asset.BalanceUsd); err == nil {
			h.USDValue = &usd
		}
		holdings = append(holdings, h)
	}

	p.logger.Info().Int("assets", len(holdings)).Msg("multichain balances fetched")
	return holdings, nil
}

func (p *EVMProvider) nativeBalanceOnly(ctx context.Context, owner string) ([]dust.RawHolding, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	wei, err := client.BalanceAt(ctx, common.HexToAddress(owner), nil)
	if err != nil {
		return nil, err
	}

	balance := decimal.NewFromBigInt(wei, -18)
	return []dust.RawHolding{{
		Symbol:     "BNB",
		Balance:    balance,
		RawBalance: wei.String(),
		Decimals:   18,
		Native:     true,
	}}, nil
}

// SignAndSend submits one ERC20 transfer moving the exact raw balance to
// the burn address. The batch always holds a single item: each token is an
// isolated contract call.
func (p *EVMProvider) SignAndSend(ctx context.Context, batch []dust.Item) (string, error) {
	if len(batch) != 1 {
		return "", fmt.Errorf("burn transfers take one token per transaction, got %d", len(batch))
	}
	if p.opts.OperatorKey == "" {
		return "", errors.New("evm operator key not configured")
	}

	item := batch[0]
	amount, ok := new(big.Int).SetString(item.RawBalance, 10)
	if !ok {
		return "", fmt.Errorf("invalid raw balance %q for %s", item.RawBalance, item.AssetID)
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(p.opts.OperatorKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse operator key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	calldata, err := erc20ABI.Pack("transfer", common.HexToAddress(BurnAddress), amount)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	tokenAddr := common.HexToAddress(item.AssetID)
	tx := types.NewTransaction(nonce, tokenAddr, big.NewInt(0), sweepGasLimit, gasPrice, calldata)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(p.opts.ChainID)), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// Confirm polls for the transaction receipt until mined or timed out. A
// reverted receipt is a hard failure, not a timeout.
func (p *EVMProvider) Confirm(ctx context.Context, txID string) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ConfirmTimeout)
	defer cancel()

	hash := common.HexToHash(txID)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return dust.ErrConfirmationTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}

		receipt, err := client.TransactionReceipt(ctx, hash)
		if err != nil {
			// Not mined yet.
			continue
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return fmt.Errorf("transaction %s reverted", txID)
		}
		return nil
	}
}

var (
	_ HoldingsProvider = (*EVMProvider)(nil)
	_ dust.Submitter   = (*EVMProvider)(nil)
)

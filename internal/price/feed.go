package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dustsweep/internal/scheduler"
)

// Options parameterise the price client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches USD spot prices from the CoinGecko simple price API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient 构造价格查询客户端。
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "price_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// CurrentPrice returns the USD price for one asset id (e.g. "solana").
func (c *Client) CurrentPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	if assetID == "" {
		return decimal.Decimal{}, errors.New("asset id required")
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("price api status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out map[string]map[string]json.Number
	if err := json.Unmarshal(payload, &out); err != nil {
		return decimal.Decimal{}, err
	}

	quote, ok := out[assetID]["usd"]
	if !ok || quote.String() == "" {
		return decimal.Decimal{}, fmt.Errorf("no usd quote for %s", assetID)
	}

	value, err := decimal.NewFromString(quote.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price: %w", err)
	}
	return value, nil
}

// Quote is the latest known price, if any.
type Quote struct {
	// Price is nil while no fetch has succeeded; consumers must render the
	// unknown branch ("--"), never treat it as zero.
	Price     *decimal.Decimal
	UpdatedAt time.Time
}

// Ticker refreshes one asset's price on a fixed interval. Stop must be
// called on teardown so the refresh goroutine does not leak.
type Ticker struct {
	client   *Client
	assetID  string
	interval time.Duration
	logger   zerolog.Logger

	mu    sync.RWMutex
	quote Quote

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker 构造周期价格刷新器, 默认 30 秒。
func NewTicker(client *Client, assetID string, interval time.Duration, logger zerolog.Logger) *Ticker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Ticker{
		client:   client,
		assetID:  assetID,
		interval: interval,
		logger:   logger.With().Str("component", "price_ticker").Logger(),
	}
}

// Start launches the refresh loop. The first fetch fires immediately.
func (t *Ticker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	sched := scheduler.New(scheduler.Options{Interval: t.interval, Immediate: true}, t.logger)

	go func() {
		defer close(t.done)
		_ = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
			value, err := t.client.CurrentPrice(ctx, t.assetID)
			if err != nil {
				// Keep the prior quote; absence degrades, never zeroes.
				t.logger.Warn().Err(err).Str("asset", t.assetID).Msg("price refresh failed")
				return nil
			}
			t.mu.Lock()
			t.quote = Quote{Price: &value, UpdatedAt: time.Now().UTC()}
			t.mu.Unlock()
			return nil
		})
	}()
}

// Stop cancels the refresh loop and waits for it to exit.
func (t *Ticker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Current returns the latest quote.
func (t *Ticker) Current() Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.quote
}

// FormatUSD renders an asset amount in USD, or "--" while no price is known.
func (q Quote) FormatUSD(amount decimal.Decimal) string {
	if q.Price == nil {
		return "--"
	}
	return "$" + amount.Mul(*q.Price).StringFixed(2)
}

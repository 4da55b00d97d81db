package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dustsweep/internal/chain"
	"dustsweep/internal/config"
	"dustsweep/internal/history"
	"dustsweep/internal/price"
	"dustsweep/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// ChainOptions pick the chain, network, and wallet for a command. Empty
// fields fall back to configuration.
type ChainOptions struct {
	Chain   string
	Network string
	Wallet  string
	// Unsafe disables the new-account protection window.
	Unsafe bool
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting run history.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

func (a *App) selection(opts ChainOptions) (chain.Selection, error) {
	switch opts.Chain {
	case "", string(chain.Solana):
		network := opts.Network
		if network == "" {
			network = a.Config.Solana.Network
		}
		return chain.Selection{Chain: chain.Solana, Network: network}, nil
	case string(chain.BNB):
		network := opts.Network
		if network == "" {
			network = "mainnet"
		}
		return chain.Selection{Chain: chain.BNB, Network: network}, nil
	default:
		return chain.Selection{}, fmt.Errorf("unknown chain %q (expected solana or bnb)", opts.Chain)
	}
}

func (a *App) wallet(sel chain.Selection, opts ChainOptions) (string, error) {
	if opts.Wallet != "" {
		return opts.Wallet, nil
	}
	if sel.Chain == chain.BNB {
		if a.Config.BNB.Wallet == "" {
			return "", fmt.Errorf("no wallet configured; set bnb.wallet or pass --wallet")
		}
		return a.Config.BNB.Wallet, nil
	}
	if a.Config.Solana.Wallet == "" {
		return "", fmt.Errorf("no wallet configured; set solana.wallet or pass --wallet")
	}
	return a.Config.Solana.Wallet, nil
}

func (a *App) dependencies(ctx context.Context, sel chain.Selection, withLedger bool) (service.Dependencies, func(), error) {
	var deps service.Dependencies

	switch sel.Chain {
	case chain.BNB:
		provider := chain.NewEVMProvider(chain.EVMOptions{
			RPCURL:         a.Config.BNB.RPCURL,
			MultichainURL:  a.Config.BNB.MultichainURL,
			Blockchain:     a.Config.BNB.Blockchain,
			OperatorKey:    a.Config.BNB.OperatorKey,
			ChainID:        a.Config.BNB.ChainID,
			Timeout:        a.Config.BNB.RequestTimeout,
			ConfirmTimeout: a.Config.BNB.ConfirmTimeout,
		}, a.Logger)
		deps.Holdings = provider
		if a.Config.BNB.OperatorKey != "" {
			deps.Submitter = provider
		}
	default:
		provider := chain.NewSolanaProvider(chain.SolanaOptions{
			RPCURL:         a.Config.Solana.RPCURL,
			OperatorKey:    a.Config.Solana.OperatorKey,
			Timeout:        a.Config.Solana.RequestTimeout,
			ConfirmTimeout: a.Config.Solana.ConfirmTimeout,
		}, a.Logger)
		deps.Holdings = provider
		deps.Ages = provider
		if a.Config.Solana.OperatorKey != "" {
			deps.Submitter = provider
		}
	}

	closer := func() {}
	if withLedger {
		ledger, closeLedger, err := a.openLedger(ctx)
		if err != nil {
			return service.Dependencies{}, nil, err
		}
		deps.Ledger = ledger
		closer = closeLedger
	}

	return deps, closer, nil
}

// openLedger builds the configured run-history backend.
func (a *App) openLedger(ctx context.Context) (history.Ledger, func(), error) {
	if a.Config.Ledger.Backend == "postgres" {
		pool, err := history.NewPool(ctx, history.PoolConfig{
			DSN:             a.Config.Ledger.DSN,
			MaxOpenConns:    a.Config.Ledger.MaxOpenConns,
			MaxIdleConns:    a.Config.Ledger.MaxIdleConns,
			ConnMaxLifetime: a.Config.Ledger.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		ledger := history.NewPostgresLedger(pool, a.Logger)
		if err := ledger.EnsureSchema(ctx); err != nil {
			ledger.Close()
			return nil, nil, err
		}
		return ledger, ledger.Close, nil
	}

	ledger := history.NewFileLedger(a.Config.Ledger.Path, a.Logger)
	return ledger, func() {}, nil
}

func (a *App) newService(ctx context.Context, opts ChainOptions, withLedger bool) (*service.Service, func(), error) {
	sel, err := a.selection(opts)
	if err != nil {
		return nil, nil, err
	}
	wallet, err := a.wallet(sel, opts)
	if err != nil {
		return nil, nil, err
	}

	cfg := a.Config
	if opts.Unsafe {
		clone := *cfg
		clone.Policy.ProtectionEnabled = false
		cfg = &clone
	}

	deps, closer, err := a.dependencies(ctx, sel, withLedger)
	if err != nil {
		return nil, nil, err
	}

	return service.New(cfg, sel, wallet, deps, a.Logger), closer, nil
}

// priceAssetID maps a chain to its CoinGecko asset identifier.
func priceAssetID(sel chain.Selection) string {
	if sel.Chain == chain.BNB {
		return "binancecoin"
	}
	return "solana"
}

func (a *App) priceClient() *price.Client {
	return price.NewClient(price.Options{
		BaseURL: a.Config.Price.BaseURL,
		Timeout: a.Config.Price.RequestTimeout,
	}, a.Logger)
}

func (a *App) newPriceTicker(sel chain.Selection) *price.Ticker {
	return price.NewTicker(a.priceClient(), priceAssetID(sel), a.Config.Price.RefreshInterval, a.Logger)
}

// spotQuote fetches a one-shot USD quote, best effort.
func (a *App) spotQuote(ctx context.Context, sel chain.Selection) price.Quote {
	if !a.Config.Price.Enabled {
		return price.Quote{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.Config.Price.RequestTimeout+time.Second)
	defer cancel()

	p, err := a.priceClient().CurrentPrice(ctx, priceAssetID(sel))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("price lookup failed, showing amounts without USD")
		return price.Quote{}
	}
	return price.Quote{Price: &p, UpdatedAt: time.Now().UTC()}
}

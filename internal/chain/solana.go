package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dustsweep/internal/dust"
)

// WSOLMint is the wrapped SOL mint address.
const WSOLMint = "So11111111111111111111111111111111111111112"

// RentPerAccount is the deposit held by one token account, in SOL.
var RentPerAccount = decimal.RequireFromString("0.00203928")

// SolanaOptions parameterise the rent-model provider.
type SolanaOptions struct {
	RPCURL string
	// OperatorKey is the base58 private key used to sign close batches.
	// Scanning works without it.
	OperatorKey    string
	Timeout        time.Duration
	ConfirmTimeout time.Duration
}

// SolanaProvider enumerates token accounts, resolves account ages, and
// drives close-account batches over Solana RPC.
type SolanaProvider struct {
	opts   SolanaOptions
	logger zerolog.Logger

	clientMux sync.Mutex
	client    *rpc.Client
}

// NewSolanaProvider 构造 Solana 提供者。
func NewSolanaProvider(opts SolanaOptions, logger zerolog.Logger) *SolanaProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 90 * time.Second
	}
	return &SolanaProvider{
		opts:   opts,
		logger: logger.With().Str("component", "solana_provider").Logger(),
	}
}

func (p *SolanaProvider) getClient() (*rpc.Client, error) {
	p.clientMux.Lock()
	defer p.clientMux.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.opts.RPCURL == "" {
		return nil, errors.New("solana rpc url not configured")
	}
	p.client = rpc.New(p.opts.RPCURL)
	return p.client, nil
}

// parsedTokenAccount mirrors the jsonParsed spl-token account layout.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       uint8  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// ListHoldings returns every spl-token account owned by the wallet.
func (p *SolanaProvider) ListHoldings(ctx context.Context, owner string) ([]dust.RawHolding, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, &dust.ProviderError{Op: "list holdings", Err: err}
	}

	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, &dust.ProviderError{Op: "list holdings", Err: fmt.Errorf("parse owner: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	out, err := client.GetTokenAccountsByOwner(
		ctx,
		ownerKey,
		&rpc.GetTokenAccountsConfig{ProgramId: &solana.TokenProgramID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return nil, &dust.ProviderError{Op: "list holdings", Err: err}
	}

	holdings := make([]dust.RawHolding, 0, len(out.Value))
	for _, acc := range out.Value {
		raw := acc.Account.Data.GetRawJSON()
		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			// Not an spl-token layout we understand; skip, do not abort.
			p.logger.Warn().Err(err).Str("account", acc.Pubkey.String()).Msg("skip unparsable token account")
			continue
		}

		info := parsed.Parsed.Info
		balance := decimal.Zero
		if info.TokenAmount.UIAmountString != "" {
			if d, err := decimal.NewFromString(info.TokenAmount.UIAmountString); err == nil {
				balance = d
			}
		}

		holdings = append(holdings, dust.RawHolding{
			Address:    acc.Pubkey.String(),
			AssetID:    info.Mint,
			Balance:    balance,
			RawBalance: info.TokenAmount.Amount,
			Decimals:   info.TokenAmount.Decimals,
		})
	}

	p.logger.Info().Int("accounts", len(holdings)).Msg("token accounts enumerated")
	return holdings, nil
}

// FirstActivity returns the block time of the oldest retained signature for
// the account, or nil when it cannot be determined.
func (p *SolanaProvider) FirstActivity(ctx context.Context, account string) (*time.Time, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	key, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	limit := 1
	sigs, err := client.GetSignaturesForAddressWithOpts(ctx, key, &rpc.GetSignaturesForAddressOpts{Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 || sigs[0].BlockTime == nil {
		return nil, nil
	}

	ts := sigs[0].BlockTime.Time()
	return &ts, nil
}

// SignAndSend bundles one close-account instruction per item into a single
// transaction, signs it with the operator key, and broadcasts it.
func (p *SolanaProvider) SignAndSend(ctx context.Context, batch []dust.Item) (string, error) {
	client, err := p.getClient()
	if err != nil {
		return "", err
	}
	if p.opts.OperatorKey == "" {
		return "", errors.New("solana operator key not configured")
	}

	operator, err := solana.PrivateKeyFromBase58(p.opts.OperatorKey)
	if err != nil {
		return "", fmt.Errorf("parse operator key: %w", err)
	}
	owner := operator.PublicKey()

	instructions := make([]solana.Instruction, 0, len(batch))
	for _, it := range batch {
		account, err := solana.PublicKeyFromBase58(it.Address)
		if err != nil {
			return "", fmt.Errorf("parse account %s: %w", it.Address, err)
		}
		// Rent goes back to the owner wallet.
		ix := token.NewCloseAccountInstruction(account, owner, owner, []solana.PublicKey{}).Build()
		instructions = append(instructions, ix)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if owner.Equals(key) {
			return &operator
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	return sig.String(), nil
}

// Confirm polls signature status until the transaction is confirmed or the
// confirm timeout elapses.
func (p *SolanaProvider) Confirm(ctx context.Context, txID string) error {
	client, err := p.getClient()
	if err != nil {
		return err
	}

	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return fmt.Errorf("parse signature: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
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

		out, err := client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			p.logger.Warn().Err(err).Str("tx", txID).Msg("signature status query failed")
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}

		status := out.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", txID, status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
}

var (
	_ HoldingsProvider    = (*SolanaProvider)(nil)
	_ dust.ActivityLookup = (*SolanaProvider)(nil)
	_ dust.Submitter      = (*SolanaProvider)(nil)
)

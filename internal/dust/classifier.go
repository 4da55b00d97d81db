package dust

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RawHolding is one token holding as reported by a chain's holdings
// provider, before any dust classification.
type RawHolding struct {
	Address    string
	AssetID    string
	Symbol     string
	Name       string
	Balance    decimal.Decimal
	RawBalance string
	Decimals   uint8
	// USDValue is best effort; nil when the provider has no quote.
	USDValue *decimal.Decimal
	// Native marks the chain's own currency, which is never dust.
	Native bool
}

// Policy carries the tunable classification thresholds.
type Policy struct {
	ProtectionEnabled bool
	ProtectionWindow  time.Duration
	// WrappedNativeThreshold is the sub-unit dust cutoff for the wrapped
	// native asset, in display units.
	WrappedNativeThreshold decimal.Decimal
	// USDThreshold is the balance-model dust cutoff in USD.
	USDThreshold decimal.Decimal
	Now          time.Time
}

// ActivityLookup resolves the earliest known activity for an account.
// Best effort: unknown age returns (nil, nil), failures degrade to unknown.
type ActivityLookup interface {
	FirstActivity(ctx context.Context, account string) (*time.Time, error)
}

// RentClassifier applies the rent-model dust rules: zero balances are dust,
// and the wrapped native asset is additionally dust below its threshold.
type RentClassifier struct {
	// WrappedNativeAsset is the mint identifier of the wrapped native token.
	WrappedNativeAsset string
	// RentPerAccount is the deposit reclaimed when one account is closed.
	RentPerAccount decimal.Decimal

	ages   ActivityLookup
	logger zerolog.Logger
}

// NewRentClassifier 构造租金模型分类器。
func NewRentClassifier(wrappedNativeAsset string, rentPerAccount decimal.Decimal, ages ActivityLookup, logger zerolog.Logger) *RentClassifier {
	return &RentClassifier{
		WrappedNativeAsset: wrappedNativeAsset,
		RentPerAccount:     rentPerAccount,
		ages:               ages,
		logger:             logger.With().Str("component", "rent_classifier").Logger(),
	}
}

// Classify filters holdings down to dust items, applying the protection
// window when enabled. Age lookup failures never abort the scan; the item
// stays unprotected with an unknown age.
func (c *RentClassifier) Classify(ctx context.Context, holdings []RawHolding, pol Policy) []Item {
	items := make([]Item, 0, len(holdings))
	for _, h := range holdings {
		isWrapped := h.AssetID == c.WrappedNativeAsset

		isDust := h.Balance.IsZero()
		if !isDust && isWrapped && h.Balance.LessThan(pol.WrappedNativeThreshold) {
			isDust = true
		}
		if !isDust {
			continue
		}

		kind := KindFungibleToken
		if isWrapped {
			kind = KindWrappedNative
		}

		item := Item{
			Address:     h.Address,
			AssetID:     h.AssetID,
			Kind:        kind,
			Symbol:      h.Symbol,
			Name:        h.Name,
			Balance:     h.Balance,
			RawBalance:  h.RawBalance,
			Decimals:    h.Decimals,
			Recoverable: c.RentPerAccount,
			Status:      StatusPending,
			Selected:    true,
		}

		if pol.ProtectionEnabled {
			createdAt := c.lookupAge(ctx, h.Address)
			item.CreatedAt = createdAt
			if createdAt != nil && pol.Now.Sub(*createdAt) < pol.ProtectionWindow {
				item.Status = StatusProtected
				item.Selected = false
			}
		}

		items = append(items, item)
	}
	return items
}

func (c *RentClassifier) lookupAge(ctx context.Context, account string) *time.Time {
	if c.ages == nil {
		return nil
	}
	createdAt, err := c.ages.FirstActivity(ctx, account)
	if err != nil {
		// Unknown age, leave unprotected.
		c.logger.Warn().Err(err).Str("account", account).Msg("could not fetch account age")
		return nil
	}
	return createdAt
}

// BalanceClassifier applies the balance-model rules: a token is dust when
// its USD value is below the threshold or its balance is zero. The native
// currency is never dust regardless of value.
type BalanceClassifier struct {
	logger zerolog.Logger
}

// NewBalanceClassifier 构造余额模型分类器。
func NewBalanceClassifier(logger zerolog.Logger) *BalanceClassifier {
	return &BalanceClassifier{logger: logger.With().Str("component", "balance_classifier").Logger()}
}

// Classify filters holdings down to burnable dust tokens. Missing USD
// quotes count as unknown value, not zero, so only the zero-balance rule
// applies to them.
func (c *BalanceClassifier) Classify(holdings []RawHolding, pol Policy) []Item {
	items := make([]Item, 0, len(holdings))
	for _, h := range holdings {
		if h.Native {
			continue
		}

		isDust := h.Balance.IsZero()
		if !isDust && h.USDValue != nil && h.USDValue.LessThan(pol.USDThreshold) {
			isDust = true
		}
		if !isDust {
			continue
		}

		items = append(items, Item{
			Address:     h.AssetID,
			AssetID:     h.AssetID,
			Kind:        KindStandardToken,
			Symbol:      h.Symbol,
			Name:        h.Name,
			Balance:     h.Balance,
			RawBalance:  h.RawBalance,
			Decimals:    h.Decimals,
			Recoverable: decimal.Zero,
			Status:      StatusPending,
			Selected:    false,
		})
	}
	return items
}

package ertp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
)

// Issuer validates payments of one brand and owns the brand's payment ledger.
// It is also the only holder of each purse's recovery facet.
type Issuer struct {
	mu       sync.Mutex
	brand    *Brand
	info     ledger.DenomInfo
	engine   *ledger.Engine
	zone     kvstore.Zone
	payments *paymentLedger
	purses   map[string]*Purse
	logger   *slog.Logger
}

// Kit bundles everything the facade caches per denomination. Mint and Minter
// are nil when the holder has no admin rights.
type Kit struct {
	Brand  *Brand
	Issuer *Issuer
	Mint   *Mint
	Minter *ledger.Minter
}

// KitOption customizes NewKit.
type KitOption func(*kitOptions)

type kitOptions struct {
	zone   kvstore.Zone
	logger *slog.Logger
}

// WithZone selects where the payment ledger and recovery sets live.
func WithZone(zone kvstore.Zone) KitOption {
	return func(o *kitOptions) { o.zone = zone }
}

// WithLogger sets the logger used by the issuer and its purses.
func WithLogger(logger *slog.Logger) KitOption {
	return func(o *kitOptions) { o.logger = logger }
}

// NewKit builds the brand, issuer and, when minter is non-nil, the mint for
// the denomination described by info.
func NewKit(ctx context.Context, engine *ledger.Engine, info ledger.DenomInfo, minter *ledger.Minter, opts ...KitOption) (*Kit, error) {
	o := kitOptions{zone: kvstore.Ephemeral(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	if minter != nil && minter.Denom() != info.Denom {
		return nil, fmt.Errorf("%w: minter for %s used with %s", ledger.ErrDenomMismatch, minter.Denom(), info.Denom)
	}

	brand := &Brand{denom: info.Denom}
	issuer := &Issuer{
		brand:    brand,
		info:     info,
		engine:   engine,
		zone:     o.zone,
		payments: newPaymentLedger(o.zone.Detached, "payments/"+string(info.Denom)),
		purses:   make(map[string]*Purse),
		logger:   o.logger.With(slog.String("denom", string(info.Denom))),
	}

	kit := &Kit{Brand: brand, Issuer: issuer, Minter: minter}
	if minter != nil {
		mintPurse, err := issuer.MakeEmptyPurse(ctx)
		if err != nil {
			return nil, fmt.Errorf("mint purse: %w", err)
		}
		kit.Mint = &Mint{issuer: issuer, minter: minter, purse: mintPurse}
	}
	return kit, nil
}

// GetBrand returns the issuer's brand.
func (i *Issuer) GetBrand() *Brand { return i.brand }

// Denom returns the ledger denomination behind the brand.
func (i *Issuer) Denom() ledger.Denom { return i.info.Denom }

// Chain returns the issuing chain.
func (i *Issuer) Chain() ledger.ChainName { return i.info.Chain }

// IsLive reports whether payment can still be deposited or burned.
func (i *Issuer) IsLive(ctx context.Context, payment *Payment) (bool, error) {
	if payment == nil || payment.brand != i.brand {
		return false, nil
	}
	return i.payments.has(ctx, payment)
}

// GetAmountOf returns the amount a live payment represents.
func (i *Issuer) GetAmountOf(ctx context.Context, payment *Payment) (Amount, error) {
	if err := i.checkBrand(payment); err != nil {
		return Amount{}, err
	}
	rec, err := i.payments.get(ctx, payment)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Brand: i.brand, Value: rec.Value}, nil
}

// MakeEmptyPurse opens a new account on the issuing chain and wraps it.
func (i *Issuer) MakeEmptyPurse(ctx context.Context) (*Purse, error) {
	chain, err := i.engine.GetChain(ctx, i.info.Chain)
	if err != nil {
		return nil, err
	}
	account, err := chain.MakeAccount(ctx)
	if err != nil {
		return nil, err
	}
	return i.MakePurse(account), nil
}

// MakePurse returns the purse of this brand bound to account. Repeated calls
// for the same account return the same purse.
func (i *Issuer) MakePurse(account *ledger.Account) *Purse {
	i.mu.Lock()
	defer i.mu.Unlock()
	key := account.Address().String()
	if p, ok := i.purses[key]; ok {
		return p
	}
	p := newPurse(i, account, key)
	i.purses[key] = p
	return p
}

// Burn consumes payment and sends its value to the zero address.
func (i *Issuer) Burn(ctx context.Context, payment *Payment, shape *AmountShape) (Amount, error) {
	return i.transferPaymentToAddr(ctx, payment, ledger.ZeroAddress(i.info.Chain), shape)
}

// SendPayment consumes payment and credits its value to an arbitrary ledger
// address, which need not be wrapped by a purse.
func (i *Issuer) SendPayment(ctx context.Context, payment *Payment, dest ledger.AccountAddress, shape *AmountShape) (Amount, error) {
	return i.transferPaymentToAddr(ctx, payment, dest, shape)
}

func (i *Issuer) checkBrand(payment *Payment) error {
	if payment == nil {
		return fmt.Errorf("%w: nil payment", ErrPaymentNotLive)
	}
	if payment.brand != i.brand {
		return fmt.Errorf("%w: %v is not %v", ErrBrandMismatch, payment, i.brand)
	}
	return nil
}

// transferPaymentToAddr is shared by deposit, burn and send.
//
// The payment is deleted from the payment ledger and its recovery set before
// the ledger transfer is attempted, so a failed transfer leaves the payment
// consumed. The source purse is unencumbered on both paths.
func (i *Issuer) transferPaymentToAddr(ctx context.Context, payment *Payment, dest ledger.AccountAddress, shape *AmountShape) (Amount, error) {
	if err := i.checkBrand(payment); err != nil {
		return Amount{}, err
	}

	source, rec, err := i.commitPayment(ctx, payment, shape)
	if err != nil {
		return Amount{}, err
	}
	amount := Amount{Brand: i.brand, Value: rec.Value}

	// TODO: decide whether a failed transfer should restore the payment
	// instead of leaving it consumed with the value still in the source.
	err = i.engine.Transfer(ctx, source.account, dest, ledger.DenomAmount{Denom: i.info.Denom, Value: rec.Value})
	source.unencumber(rec.Value)
	if err != nil {
		i.logger.Warn("payment consumed but transfer failed",
			slog.String("source", source.key),
			slog.String("dest", dest.String()),
			slog.String("value", rec.Value.String()),
			slog.Any("error", err))
		return Amount{}, err
	}
	return amount, nil
}

// commitPayment looks up the payment and its recovery facet and, if the shape
// matches, removes it from both registries.
func (i *Issuer) commitPayment(ctx context.Context, payment *Payment, shape *AmountShape) (*Purse, paymentRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	rec, err := i.payments.get(ctx, payment)
	if err != nil {
		return nil, paymentRecord{}, err
	}
	source, ok := i.purses[rec.Purse]
	if !ok {
		return nil, paymentRecord{}, fmt.Errorf("%w: no recovery facet for %s", ErrPaymentNotLive, rec.Purse)
	}
	if shape != nil && !shape.Matches(Amount{Brand: i.brand, Value: rec.Value}) {
		return nil, paymentRecord{}, fmt.Errorf("%w: %s %v", ErrShapeMismatch, rec.Value, i.brand)
	}

	if err := i.payments.delete(ctx, payment); err != nil {
		return nil, paymentRecord{}, err
	}
	if err := source.recovery.remove(ctx, payment); err != nil {
		return nil, paymentRecord{}, err
	}
	return source, rec, nil
}

// forget drops a payment from the payment ledger without moving value.
func (i *Issuer) forget(ctx context.Context, payment *Payment) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.payments.delete(ctx, payment)
}

func (i *Issuer) record(ctx context.Context, payment *Payment, amount Amount, purseKey string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.payments.record(ctx, payment, amount.Value, purseKey)
}

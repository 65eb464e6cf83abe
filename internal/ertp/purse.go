package ertp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/congo-pay/ghostchain/internal/ledger"
)

// Purse holds value of one brand in one ledger account. Withdrawals create
// payments without touching the ledger; the value they promise is tracked as
// the encumbered balance until each payment is consumed.
type Purse struct {
	mu         sync.Mutex
	issuer     *Issuer
	account    *ledger.Account
	key        string
	encumbered *big.Int
	recovery   *recoverySet
}

func newPurse(issuer *Issuer, account *ledger.Account, key string) *Purse {
	return &Purse{
		issuer:     issuer,
		account:    account,
		key:        key,
		encumbered: new(big.Int),
		recovery:   newRecoverySet(issuer.zone.Detached, "recovery/"+string(issuer.info.Denom)+"/"+key),
	}
}

// Address returns the ledger address backing the purse.
func (p *Purse) Address() ledger.AccountAddress { return p.account.Address() }

// GetAllegedBrand returns the purse's brand.
func (p *Purse) GetAllegedBrand() *Brand { return p.issuer.brand }

// Withdraw creates a payment for amount. Non-empty payments are added to the
// recovery set and encumber the purse. The ledger is not touched.
func (p *Purse) Withdraw(ctx context.Context, amount Amount) (*Payment, error) {
	if err := amount.validate(p.issuer.brand); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	payment := newPayment(p.issuer.brand)
	if err := p.issuer.record(ctx, payment, amount, p.key); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if amount.IsEmpty() {
		return payment, nil
	}
	if err := p.recovery.add(ctx, payment); err != nil {
		if forgetErr := p.issuer.forget(ctx, payment); forgetErr != nil {
			err = errors.Join(err, forgetErr)
		}
		return nil, fmt.Errorf("register payment: %w", err)
	}
	p.encumbered.Add(p.encumbered, amount.Value)
	return payment, nil
}

// Deposit consumes payment and moves its value into this purse's account.
// If shape is non-nil the payment's amount must match it.
func (p *Purse) Deposit(ctx context.Context, payment *Payment, shape *AmountShape) (Amount, error) {
	return p.issuer.transferPaymentToAddr(ctx, payment, p.Address(), shape)
}

// GetCurrentFullBalance reads the account's ledger balance.
func (p *Purse) GetCurrentFullBalance(ctx context.Context) (Amount, error) {
	bal, err := p.account.GetBalance(ctx, p.issuer.info.Denom)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Brand: p.issuer.brand, Value: bal.Value}, nil
}

// GetCurrentEncumberedBalance returns the value promised to live payments.
func (p *Purse) GetCurrentEncumberedBalance() Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Amount{Brand: p.issuer.brand, Value: new(big.Int).Set(p.encumbered)}
}

// GetCurrentUnencumberedBalance returns full minus encumbered balance.
func (p *Purse) GetCurrentUnencumberedBalance(ctx context.Context) (Amount, error) {
	full, err := p.GetCurrentFullBalance(ctx)
	if err != nil {
		return Amount{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if full.Value.Cmp(p.encumbered) < 0 {
		p.issuer.logger.Error("encumbered exceeds full balance",
			slog.String("purse", p.key),
			slog.String("full", full.Value.String()),
			slog.String("encumbered", p.encumbered.String()))
		return Amount{}, fmt.Errorf("%w: %s full %s, encumbered %s", ErrNegativeBalance, p.key, full.Value, p.encumbered)
	}
	return Amount{Brand: p.issuer.brand, Value: new(big.Int).Sub(full.Value, p.encumbered)}, nil
}

// GetRecoverySet lists the live non-empty payments withdrawn from this purse.
func (p *Purse) GetRecoverySet(ctx context.Context) ([]*Payment, error) {
	return p.recovery.list(ctx)
}

// RecoverAll abandons every payment in the recovery set and resets the
// encumbered balance. Ledger balances are not changed. It returns what was
// encumbered.
func (p *Purse) RecoverAll(ctx context.Context) (Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payments, err := p.recovery.list(ctx)
	if err != nil {
		return Amount{}, err
	}
	for _, payment := range payments {
		if err := p.issuer.forget(ctx, payment); err != nil && !errors.Is(err, ErrPaymentNotLive) {
			return Amount{}, err
		}
		if err := p.recovery.remove(ctx, payment); err != nil {
			return Amount{}, err
		}
	}
	recovered := Amount{Brand: p.issuer.brand, Value: p.encumbered}
	p.encumbered = new(big.Int)
	p.issuer.logger.Info("purse recovered",
		slog.String("purse", p.key),
		slog.Int("payments", len(payments)),
		slog.String("value", recovered.Value.String()))
	return recovered, nil
}

func (p *Purse) unencumber(value *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encumbered.Sub(p.encumbered, value)
	if p.encumbered.Sign() < 0 {
		p.issuer.logger.Error("encumbered balance went negative", slog.String("purse", p.key))
		p.encumbered.SetInt64(0)
	}
}


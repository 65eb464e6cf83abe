package ertp

import (
	"context"

	"github.com/congo-pay/ghostchain/internal/ledger"
)

// Mint creates new payments of its brand. New value is credited to the mint's
// own purse through the admin minter and then withdrawn as a payment.
type Mint struct {
	issuer *Issuer
	minter *ledger.Minter
	purse  *Purse
}

// GetIssuer returns the issuer of the minted brand.
func (m *Mint) GetIssuer() *Issuer { return m.issuer }

// MintPayment creates a payment for newly minted amount.
func (m *Mint) MintPayment(ctx context.Context, amount Amount) (*Payment, error) {
	if err := amount.validate(m.issuer.brand); err != nil {
		return nil, err
	}
	if !amount.IsEmpty() {
		err := m.minter.MintTo(ctx, m.purse.Address(), ledger.DenomAmount{Denom: m.issuer.info.Denom, Value: amount.Value})
		if err != nil {
			return nil, err
		}
	}
	return m.purse.Withdraw(ctx, amount)
}

package ertp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/congo-pay/ghostchain/internal/ledger"
)

var (
	// ErrShapeMismatch is returned when a payment's amount does not match the
	// shape the caller expected.
	ErrShapeMismatch = errors.New("amount shape mismatch")

	// ErrNegativeBalance signals encumbered value exceeding the on-ledger
	// balance. It indicates a bookkeeping bug.
	ErrNegativeBalance = errors.New("negative unencumbered balance")

	// ErrPaymentNotLive is returned for payments that were consumed, abandoned
	// or never issued by this issuer.
	ErrPaymentNotLive = errors.New("payment not live")

	// ErrBrandMismatch is returned when an amount or payment belongs to
	// another brand.
	ErrBrandMismatch = errors.New("brand mismatch")
)

// Brand identifies the payment type of one denomination. Brands compare by
// pointer identity.
type Brand struct {
	denom ledger.Denom
}

// Name returns the brand's display name, which is its denomination.
func (b *Brand) Name() string { return string(b.denom) }

func (b *Brand) String() string { return "brand:" + string(b.denom) }

// Amount is a quantity of a brand.
type Amount struct {
	Brand *Brand
	Value *big.Int
}

// MakeAmount is a convenience constructor for int64 values.
func MakeAmount(brand *Brand, value int64) Amount {
	return Amount{Brand: brand, Value: big.NewInt(value)}
}

// IsEmpty reports a zero value.
func (a Amount) IsEmpty() bool { return a.Value == nil || a.Value.Sign() == 0 }

func (a Amount) String() string {
	return fmt.Sprintf("%s %v", a.Value, a.Brand)
}

func (a Amount) validate(brand *Brand) error {
	if a.Brand != brand {
		return fmt.Errorf("%w: expected %v, got %v", ErrBrandMismatch, brand, a.Brand)
	}
	if a.Value == nil || a.Value.Sign() < 0 {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, a.Value)
	}
	return nil
}

// AmountShape constrains an expected amount. A nil Value matches any value of
// the brand.
type AmountShape struct {
	Brand *Brand
	Value *big.Int
}

// Matches reports whether a satisfies the shape.
func (s AmountShape) Matches(a Amount) bool {
	if s.Brand != a.Brand {
		return false
	}
	return s.Value == nil || (a.Value != nil && s.Value.Cmp(a.Value) == 0)
}

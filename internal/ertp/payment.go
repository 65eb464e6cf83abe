package ertp

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/congo-pay/ghostchain/internal/kvstore"
)

// Payment is a single-use bearer token for an amount of one brand. Its
// identity is private; two payments are never equal.
type Payment struct {
	id    string
	brand *Brand
}

func newPayment(brand *Brand) *Payment {
	return &Payment{id: uuid.NewString(), brand: brand}
}

// AllegedBrand returns the brand the payment claims. Only the issuer can
// confirm it is live.
func (p *Payment) AllegedBrand() *Brand { return p.brand }

func (p *Payment) String() string { return fmt.Sprintf("payment(%v)", p.brand) }

type paymentRecord struct {
	Value *big.Int `json:"value"`
	Purse string   `json:"purse"`
}

// paymentLedger maps live payments to their amount and issuing purse.
type paymentLedger struct {
	records *kvstore.Map[paymentRecord]
}

func newPaymentLedger(backend kvstore.Backend, bucket string) *paymentLedger {
	return &paymentLedger{records: kvstore.NewMap[paymentRecord](backend, bucket)}
}

func (l *paymentLedger) record(ctx context.Context, p *Payment, value *big.Int, purseKey string) error {
	return l.records.Init(ctx, p.id, paymentRecord{Value: new(big.Int).Set(value), Purse: purseKey})
}

func (l *paymentLedger) get(ctx context.Context, p *Payment) (paymentRecord, error) {
	rec, err := l.records.Get(ctx, p.id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return paymentRecord{}, fmt.Errorf("%w: %v", ErrPaymentNotLive, p)
	}
	if err != nil {
		return paymentRecord{}, err
	}
	if rec.Value == nil {
		rec.Value = new(big.Int)
	}
	return rec, nil
}

func (l *paymentLedger) has(ctx context.Context, p *Payment) (bool, error) {
	return l.records.Has(ctx, p.id)
}

func (l *paymentLedger) delete(ctx context.Context, p *Payment) error {
	err := l.records.Delete(ctx, p.id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrPaymentNotLive, p)
	}
	return err
}

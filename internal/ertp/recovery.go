package ertp

import (
	"context"
	"errors"
	"sync"

	"github.com/congo-pay/ghostchain/internal/kvstore"
)

// recoverySet holds the live, non-empty payments withdrawn from one purse.
type recoverySet struct {
	mu      sync.Mutex
	members *kvstore.Set
	handles map[string]*Payment
}

func newRecoverySet(backend kvstore.Backend, bucket string) *recoverySet {
	return &recoverySet{members: kvstore.NewSet(backend, bucket), handles: make(map[string]*Payment)}
}

func (r *recoverySet) add(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.members.Add(ctx, p.id); err != nil {
		return err
	}
	r.handles[p.id] = p
	return nil
}

// remove drops p; payments that were never tracked are ignored.
func (r *recoverySet) remove(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, p.id)
	if err := r.members.Delete(ctx, p.id); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}
	return nil
}

func (r *recoverySet) list(ctx context.Context) ([]*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.members.Members(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Payment, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.handles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

package ledger

import (
	"context"
	"math/big"
)

// SeedBalance is a test helper that overwrites the balance of denom at addr
// without touching supply statistics.
func SeedBalance(ctx context.Context, e *Engine, addr AccountAddress, denom Denom, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances.Put(ctx, balanceKey(addr, denom), big.NewInt(amount))
}

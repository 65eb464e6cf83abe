package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/notification"
)

// Admin holds the right to create denominations. Whoever is handed an Admin
// can create money; the engine itself never exposes one implicitly.
type Admin struct {
	engine *Engine
}

// Admin returns the engine's denomination admin capability.
func (e *Engine) Admin() *Admin {
	return &Admin{engine: e}
}

// MakeDenom registers denom as issued by chain and returns its minter.
// Registration is append-only.
func (a *Admin) MakeDenom(ctx context.Context, denom Denom, chain ChainName) (*Minter, error) {
	if denom == "" {
		return nil, fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	if err := validateChain(chain); err != nil {
		return nil, err
	}
	e := a.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureChain(ctx, chain); err != nil {
		return nil, err
	}
	info := DenomInfo{Denom: denom, Chain: chain}
	if err := e.denoms.Init(ctx, string(denom), info); err != nil {
		if errors.Is(err, kvstore.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrDenomAlreadyExists, denom)
		}
		return nil, err
	}
	e.logger.Info("denom created", slog.String("denom", string(denom)), slog.String("chain", string(chain)))
	return &Minter{engine: e, info: info}, nil
}

// Minter returns the minter of an already registered denom, for holders of
// the admin capability that did not create it in this process.
func (a *Admin) Minter(ctx context.Context, denom Denom) (*Minter, error) {
	info, err := a.engine.GetDenomInfo(ctx, denom)
	if err != nil {
		return nil, err
	}
	return &Minter{engine: a.engine, info: info}, nil
}

// Minter credits one denomination to arbitrary accounts. It is the only source
// of new value in the ledger.
type Minter struct {
	engine *Engine
	info   DenomInfo
}

// Denom returns the denomination this minter issues.
func (m *Minter) Denom() Denom { return m.info.Denom }

// Chain returns the issuing chain.
func (m *Minter) Chain() ChainName { return m.info.Chain }

// MintTo credits amt to dest without debiting anything.
func (m *Minter) MintTo(ctx context.Context, dest AccountAddress, amt DenomAmount) error {
	if amt.Denom != m.info.Denom {
		return fmt.Errorf("%w: minter for %s cannot mint %s", ErrDenomMismatch, m.info.Denom, amt.Denom)
	}
	if err := amt.Validate(); err != nil {
		return err
	}
	e := m.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAccount(ctx, dest); err != nil {
		return err
	}
	if err := e.increment(ctx, dest, amt); err != nil {
		return err
	}
	if err := e.addSupply(ctx, amt.Denom, amt.Value, nil); err != nil {
		if undoErr := e.decrement(ctx, dest, amt); undoErr != nil {
			e.logger.Error("roll back mint failed",
				slog.String("address", dest.String()),
				slog.String("denom", string(amt.Denom)),
				slog.Any("error", undoErr))
			return errors.Join(err, undoErr)
		}
		return err
	}
	e.notify(ctx, notification.KindMint, "", dest.String(), amt)
	return nil
}

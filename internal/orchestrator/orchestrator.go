package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/congo-pay/ghostchain/internal/ertp"
	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
)

// ErrNoAdminRights is returned when a denomination must be created or minted
// but the orchestrator was built without the admin capability.
var ErrNoAdminRights = errors.New("no admin rights")

// Orchestrator hands out asset kits for (denom, chain) pairs on top of one
// ledger engine.
type Orchestrator struct {
	mu     sync.Mutex
	engine *ledger.Engine
	admin  *ledger.Admin
	zone   kvstore.Zone
	logger *slog.Logger
	kits   map[kitKey]*ertp.Kit
}

type kitKey struct {
	denom ledger.Denom
	chain ledger.ChainName
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAdmin grants the orchestrator the right to create denominations and
// mint.
func WithAdmin(admin *ledger.Admin) Option {
	return func(o *Orchestrator) { o.admin = admin }
}

// WithZone selects where payment and recovery registries are kept.
func WithZone(zone kvstore.Zone) Option {
	return func(o *Orchestrator) { o.zone = zone }
}

// WithLogger sets the logger passed down to issuers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an orchestrator over engine.
func New(engine *ledger.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		zone:   kvstore.Ephemeral(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		kits:   make(map[kitKey]*ertp.Kit),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Engine exposes the underlying ledger engine.
func (o *Orchestrator) Engine() *ledger.Engine { return o.engine }

// GetChain returns the named chain, creating it on first use.
func (o *Orchestrator) GetChain(ctx context.Context, name ledger.ChainName) (*ledger.Chain, error) {
	return o.engine.GetChain(ctx, name)
}

// ProvideKit returns the cached kit for denom on chain. A denomination
// already known to the engine yields a kit without a mint; otherwise the
// denomination is created through the admin and the kit carries a mint.
func (o *Orchestrator) ProvideKit(ctx context.Context, denom ledger.Denom, chain ledger.ChainName) (*ertp.Kit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := kitKey{denom: denom, chain: chain}
	if kit, ok := o.kits[key]; ok {
		return kit, nil
	}

	var minter *ledger.Minter
	info, err := o.engine.GetDenomInfo(ctx, denom)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrUnknownDenom):
		if o.admin == nil {
			return nil, fmt.Errorf("%w: create %s on %s", ErrNoAdminRights, denom, chain)
		}
		minter, err = o.admin.MakeDenom(ctx, denom, chain)
		if err != nil {
			return nil, err
		}
		info = ledger.DenomInfo{Denom: minter.Denom(), Chain: minter.Chain()}
	default:
		return nil, err
	}

	kit, err := ertp.NewKit(ctx, o.engine, info, minter, ertp.WithZone(o.zone), ertp.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	o.kits[key] = kit
	o.logger.Info("asset kit provided",
		slog.String("denom", string(denom)),
		slog.String("chain", string(chain)),
		slog.Bool("mintable", kit.Mint != nil))
	return kit, nil
}

// Faucet mints amt straight into dest. A denomination unknown to the engine
// is created on issuingChain first. Nothing is registered when dest does not
// exist or amt is invalid.
func (o *Orchestrator) Faucet(ctx context.Context, dest ledger.AccountAddress, amt ledger.DenomAmount, issuingChain ledger.ChainName) error {
	if err := amt.Validate(); err != nil {
		return err
	}
	if _, err := o.engine.Account(ctx, dest); err != nil {
		return err
	}

	kit, err := o.ProvideKit(ctx, amt.Denom, issuingChain)
	if err != nil {
		return err
	}
	minter := kit.Minter
	if minter == nil {
		if o.admin == nil {
			return fmt.Errorf("%w: %s is not mintable here", ErrNoAdminRights, amt.Denom)
		}
		if minter, err = o.admin.Minter(ctx, amt.Denom); err != nil {
			return err
		}
	}
	return minter.MintTo(ctx, dest, amt)
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/notification"
)

type chainRecord struct {
	AccountCount uint64 `json:"accountCount"`
}

type accountRecord struct {
	Address AccountAddress `json:"address"`
}

// Engine is the multi-chain ledger. Every operation runs under a single mutex
// so a read-then-write on a balance never interleaves with another operation.
type Engine struct {
	mu       sync.Mutex
	chains   *kvstore.Map[chainRecord]
	accounts *kvstore.Map[accountRecord]
	balances *kvstore.Map[*big.Int]
	denoms   *kvstore.Map[DenomInfo]
	supply   *kvstore.Map[Supply]
	notifier notification.Notifier
	logger   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNotifier routes ledger events to n.
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds a ledger whose state lives in backend.
func NewEngine(backend kvstore.Backend, opts ...Option) *Engine {
	e := &Engine{
		chains:   kvstore.NewMap[chainRecord](backend, "chains"),
		accounts: kvstore.NewMap[accountRecord](backend, "accounts"),
		balances: kvstore.NewMap[*big.Int](backend, "balances"),
		denoms:   kvstore.NewMap[DenomInfo](backend, "denoms"),
		supply:   kvstore.NewMap[Supply](backend, "supply"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewInMemory creates an engine backed by an in-memory store, useful for tests.
func NewInMemory(opts ...Option) *Engine {
	return NewEngine(kvstore.NewMemory(), opts...)
}

// Chain is a handle onto one simulated chain.
type Chain struct {
	engine *Engine
	name   ChainName
}

// Name returns the chain identifier.
func (c *Chain) Name() ChainName { return c.name }

// GetChain returns the chain called name, creating it on first use.
func (e *Engine) GetChain(ctx context.Context, name ChainName) (*Chain, error) {
	if err := validateChain(name); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureChain(ctx, name); err != nil {
		return nil, err
	}
	return &Chain{engine: e, name: name}, nil
}

func (e *Engine) ensureChain(ctx context.Context, name ChainName) error {
	err := e.chains.Init(ctx, string(name), chainRecord{})
	if err != nil && !errors.Is(err, kvstore.ErrExists) {
		return fmt.Errorf("create chain %s: %w", name, err)
	}
	return nil
}

// Chains lists every chain created so far.
func (e *Engine) Chains(ctx context.Context) ([]ChainName, error) {
	keys, err := e.chains.Keys(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]ChainName, len(keys))
	for i, k := range keys {
		names[i] = ChainName(k)
	}
	return names, nil
}

// MakeAccount allocates the next sequential address on the chain. Addresses
// start at "1"; "0" is the zero address.
func (c *Chain) MakeAccount(ctx context.Context) (*Account, error) {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.chains.Get(ctx, string(c.name))
	if err != nil {
		return nil, fmt.Errorf("load chain %s: %w", c.name, err)
	}
	rec.AccountCount++
	addr := AccountAddress{ChainID: c.name, Value: strconv.FormatUint(rec.AccountCount, 10)}

	if err := e.chains.Set(ctx, string(c.name), rec); err != nil {
		return nil, fmt.Errorf("update chain %s: %w", c.name, err)
	}
	if err := e.accounts.Init(ctx, accountKey(addr), accountRecord{Address: addr}); err != nil {
		return nil, fmt.Errorf("create account %s: %w", addr, err)
	}
	e.logger.Debug("account created", slog.String("address", addr.String()))
	return &Account{engine: e, address: addr}, nil
}

// LookupAccount returns a handle to an existing account on the chain.
func (c *Chain) LookupAccount(ctx context.Context, value string) (*Account, error) {
	return c.engine.Account(ctx, AccountAddress{ChainID: c.name, Value: value})
}

// Account returns a handle to the account at addr.
func (e *Engine) Account(ctx context.Context, addr AccountAddress) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAccount(ctx, addr); err != nil {
		return nil, err
	}
	return &Account{engine: e, address: addr}, nil
}

// Transfer moves amt from source to dest.
//
// The source is debited first. A zero-address destination ends the transfer
// there, burning the value. Otherwise the destination is resolved and, if it
// does not exist, the source is re-credited before ErrUnknownDestination is
// returned.
func (e *Engine) Transfer(ctx context.Context, source *Account, dest AccountAddress, amt DenomAmount) error {
	if source == nil {
		return fmt.Errorf("%w: transfer source", ErrNilAccount)
	}
	if err := amt.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	from := source.address
	if err := e.decrement(ctx, from, amt); err != nil {
		return err
	}

	if dest.IsZero() {
		if err := e.addSupply(ctx, amt.Denom, nil, amt.Value); err != nil {
			return e.restore(ctx, from, amt, err)
		}
		e.notify(ctx, notification.KindBurn, from.String(), dest.String(), amt)
		return nil
	}

	if err := e.requireAccount(ctx, dest); err != nil {
		return e.restore(ctx, from, amt, err)
	}
	if err := e.increment(ctx, dest, amt); err != nil {
		return e.restore(ctx, from, amt, err)
	}
	e.notify(ctx, notification.KindTransfer, from.String(), dest.String(), amt)
	return nil
}

// restore re-credits a debited source after a later step of a transfer
// failed, and returns cause joined with any restore failure.
func (e *Engine) restore(ctx context.Context, from AccountAddress, amt DenomAmount, cause error) error {
	if err := e.increment(ctx, from, amt); err != nil {
		e.logger.Error("restore source balance failed",
			slog.String("address", from.String()),
			slog.String("denom", string(amt.Denom)),
			slog.Any("error", err))
		return errors.Join(cause, err)
	}
	return cause
}

// GetDenomInfo returns the registration record of denom.
func (e *Engine) GetDenomInfo(ctx context.Context, denom Denom) (DenomInfo, error) {
	info, err := e.denoms.Get(ctx, string(denom))
	if errors.Is(err, kvstore.ErrNotFound) {
		return DenomInfo{}, fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
	}
	return info, err
}

// Supply returns the minted and burned totals of denom.
func (e *Engine) Supply(ctx context.Context, denom Denom) (Supply, error) {
	s, err := e.supply.Get(ctx, string(denom))
	if errors.Is(err, kvstore.ErrNotFound) {
		return Supply{Minted: new(big.Int), Burned: new(big.Int)}, nil
	}
	if err != nil {
		return Supply{}, err
	}
	return normalizeSupply(s), nil
}

func (e *Engine) requireAccount(ctx context.Context, addr AccountAddress) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, addr)
	}
	ok, err := e.accounts.Has(ctx, accountKey(addr))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, addr)
	}
	return nil
}

func (e *Engine) balanceOf(ctx context.Context, addr AccountAddress, denom Denom) (*big.Int, error) {
	bal, err := e.balances.Get(ctx, balanceKey(addr, denom))
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && bal == nil) {
		return new(big.Int), nil
	}
	return bal, err
}

func (e *Engine) decrement(ctx context.Context, addr AccountAddress, amt DenomAmount) error {
	bal, err := e.balanceOf(ctx, addr, amt.Denom)
	if err != nil {
		return err
	}
	if bal.Cmp(amt.Value) < 0 {
		return fmt.Errorf("%w: %s holds %s%s, needs %s", ErrOverdraft, addr, bal, amt.Denom, amt.Value)
	}
	return e.balances.Put(ctx, balanceKey(addr, amt.Denom), new(big.Int).Sub(bal, amt.Value))
}

func (e *Engine) increment(ctx context.Context, addr AccountAddress, amt DenomAmount) error {
	bal, err := e.balanceOf(ctx, addr, amt.Denom)
	if err != nil {
		return err
	}
	return e.balances.Put(ctx, balanceKey(addr, amt.Denom), new(big.Int).Add(bal, amt.Value))
}

func (e *Engine) addSupply(ctx context.Context, denom Denom, minted, burned *big.Int) error {
	s, err := e.Supply(ctx, denom)
	if err != nil {
		return err
	}
	if minted != nil {
		s.Minted.Add(s.Minted, minted)
	}
	if burned != nil {
		s.Burned.Add(s.Burned, burned)
	}
	return e.supply.Put(ctx, string(denom), s)
}

func (e *Engine) notify(ctx context.Context, kind, from, to string, amt DenomAmount) {
	if e.notifier == nil {
		return
	}
	event := notification.Event{Kind: kind, From: from, To: to, Denom: string(amt.Denom), Value: new(big.Int).Set(amt.Value)}
	if err := e.notifier.Send(ctx, event); err != nil {
		e.logger.Warn("ledger event dropped", slog.String("kind", kind), slog.Any("error", err))
	}
}

// Account is a handle onto one account's balance store.
type Account struct {
	engine  *Engine
	address AccountAddress
}

// Address returns the account's address.
func (a *Account) Address() AccountAddress { return a.address }

// GetBalance returns the balance of denom, zero when never touched.
func (a *Account) GetBalance(ctx context.Context, denom Denom) (DenomAmount, error) {
	a.engine.mu.Lock()
	defer a.engine.mu.Unlock()
	bal, err := a.engine.balanceOf(ctx, a.address, denom)
	if err != nil {
		return DenomAmount{}, err
	}
	return DenomAmount{Denom: denom, Value: bal}, nil
}

// GetBalances lists every denomination the account has touched, sorted by denom.
func (a *Account) GetBalances(ctx context.Context) ([]DenomAmount, error) {
	a.engine.mu.Lock()
	defer a.engine.mu.Unlock()
	prefix := accountKey(a.address) + "/"
	keys, err := a.engine.balances.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]DenomAmount, 0, len(keys))
	for _, key := range keys {
		bal, err := a.engine.balances.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if bal == nil {
			bal = new(big.Int)
		}
		out = append(out, DenomAmount{Denom: Denom(strings.TrimPrefix(key, prefix)), Value: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

// Send transfers amt from this account to dest.
func (a *Account) Send(ctx context.Context, dest AccountAddress, amt DenomAmount) error {
	return a.engine.Transfer(ctx, a, dest, amt)
}

func accountKey(addr AccountAddress) string {
	return string(addr.ChainID) + "/" + addr.Value
}

func balanceKey(addr AccountAddress, denom Denom) string {
	return accountKey(addr) + "/" + string(denom)
}

func normalizeSupply(s Supply) Supply {
	if s.Minted == nil {
		s.Minted = new(big.Int)
	}
	if s.Burned == nil {
		s.Burned = new(big.Int)
	}
	return s
}

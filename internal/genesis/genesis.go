// Package genesis seeds a ledger from a YAML description of chains,
// denominations and initial balances.
package genesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
)

// Genesis is the initial state of a simulated network.
type Genesis struct {
	Chains []Chain `yaml:"chains"`
	Denoms []Denom `yaml:"denoms"`
	Mints  []Mint  `yaml:"mints,omitempty"`
}

// Chain names a chain and how many accounts it should hold.
type Chain struct {
	Name     string `yaml:"name"`
	Accounts int    `yaml:"accounts"`
}

// Denom registers a denomination on its issuing chain.
type Denom struct {
	Denom string `yaml:"denom"`
	Chain string `yaml:"chain"`
}

// Mint credits an account at startup. To uses the "chain:value" address form.
type Mint struct {
	To    string `yaml:"to"`
	Denom string `yaml:"denom"`
	Value string `yaml:"value"`
}

// Load reads and parses a genesis file. Unknown fields are rejected.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}
	return Parse(data)
}

// Parse decodes genesis YAML.
func Parse(data []byte) (*Genesis, error) {
	var g Genesis
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Genesis) validate() error {
	for i, c := range g.Chains {
		if c.Name == "" {
			return fmt.Errorf("chains[%d]: name is required", i)
		}
		if c.Accounts < 0 {
			return fmt.Errorf("chains[%d]: accounts must not be negative", i)
		}
	}
	for i, d := range g.Denoms {
		if d.Denom == "" || d.Chain == "" {
			return fmt.Errorf("denoms[%d]: denom and chain are required", i)
		}
	}
	for i, m := range g.Mints {
		if _, err := ledger.ParseAddress(m.To); err != nil {
			return fmt.Errorf("mints[%d]: %w", i, err)
		}
		if _, err := ledger.ParseDenomAmount(ledger.Denom(m.Denom), m.Value); err != nil {
			return fmt.Errorf("mints[%d]: %w", i, err)
		}
	}
	return nil
}

// Apply creates the chains and accounts, registers denominations through the
// orchestrator and performs the initial mints. Re-applying to a store that
// already holds the state only creates what is missing; mints of
// denominations that existed before are skipped.
func Apply(ctx context.Context, orch *orchestrator.Orchestrator, g *Genesis, logger *slog.Logger) error {
	for _, c := range g.Chains {
		chain, err := orch.GetChain(ctx, ledger.ChainName(c.Name))
		if err != nil {
			return fmt.Errorf("chain %s: %w", c.Name, err)
		}
		if err := ensureAccounts(ctx, chain, c.Accounts); err != nil {
			return fmt.Errorf("chain %s: %w", c.Name, err)
		}
	}

	mintable := make(map[string]bool, len(g.Denoms))
	for _, d := range g.Denoms {
		kit, err := orch.ProvideKit(ctx, ledger.Denom(d.Denom), ledger.ChainName(d.Chain))
		if err != nil {
			return fmt.Errorf("denom %s: %w", d.Denom, err)
		}
		mintable[d.Denom] = kit.Minter != nil
	}

	for _, m := range g.Mints {
		if ok, declared := mintable[m.Denom]; declared && !ok {
			logger.Warn("genesis mint skipped, denom already existed",
				slog.String("denom", m.Denom), slog.String("to", m.To))
			continue
		}
		dest, _ := ledger.ParseAddress(m.To)
		amt, _ := ledger.ParseDenomAmount(ledger.Denom(m.Denom), m.Value)
		if err := orch.Faucet(ctx, dest, amt, issuingChain(g, m.Denom, dest.ChainID)); err != nil {
			return fmt.Errorf("mint %s %s to %s: %w", m.Value, m.Denom, m.To, err)
		}
	}

	logger.Info("genesis applied",
		slog.Int("chains", len(g.Chains)),
		slog.Int("denoms", len(g.Denoms)),
		slog.Int("mints", len(g.Mints)))
	return nil
}

// ensureAccounts makes accounts until the chain holds at least n.
func ensureAccounts(ctx context.Context, chain *ledger.Chain, n int) error {
	for i := 1; i <= n; i++ {
		_, err := chain.LookupAccount(ctx, strconv.Itoa(i))
		if err == nil {
			continue
		}
		if !errors.Is(err, ledger.ErrUnknownDestination) {
			return err
		}
		if _, err := chain.MakeAccount(ctx); err != nil {
			return err
		}
	}
	return nil
}

func issuingChain(g *Genesis, denom string, fallback ledger.ChainName) ledger.ChainName {
	for _, d := range g.Denoms {
		if d.Denom == denom {
			return ledger.ChainName(d.Chain)
		}
	}
	return fallback
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ghostchain/internal/ertp"
	"github.com/congo-pay/ghostchain/internal/genesis"
	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/logging"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
)

// ScenarioStep is one observation printed by the scenario command.
type ScenarioStep struct {
	Step        string `json:"step"`
	Alice       string `json:"alice"`
	Bob         string `json:"bob"`
	Encumbered  string `json:"alice_encumbered"`
	PaymentLive bool   `json:"payment_live"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Run the purse walkthrough against an in-memory ledger",
		Long: `Mint 300 bucks to Alice, withdraw 100, deposit it to Bob, then withdraw
and burn 2, printing balances after each step. A genesis file, if given, is
applied to the in-memory ledger first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewWriter(cmd.ErrOrStderr(), levelOr(rootOpts.LogLevel, "warn"), "text")
			steps, err := RunScenario(cmd.Context(), rootOpts.Genesis, logger)
			if err != nil {
				return err
			}
			return printSteps(cmd.OutOrStdout(), rootOpts.Format, steps)
		},
	}
}

// RunScenario executes the walkthrough and returns what was observed.
func RunScenario(ctx context.Context, genesisFile string, logger *slog.Logger) ([]ScenarioStep, error) {
	engine := ledger.NewInMemory(ledger.WithLogger(logger))
	orch := orchestrator.New(engine, orchestrator.WithAdmin(engine.Admin()), orchestrator.WithLogger(logger))

	if genesisFile != "" {
		g, err := genesis.Load(genesisFile)
		if err != nil {
			return nil, err
		}
		if err := genesis.Apply(ctx, orch, g, logger); err != nil {
			return nil, err
		}
	}

	kit, err := orch.ProvideKit(ctx, "bucks", "agoric")
	if err != nil {
		return nil, err
	}
	if kit.Mint == nil {
		return nil, fmt.Errorf("bucks already exists and cannot be minted here")
	}
	alice, err := kit.Issuer.MakeEmptyPurse(ctx)
	if err != nil {
		return nil, err
	}
	bob, err := kit.Issuer.MakeEmptyPurse(ctx)
	if err != nil {
		return nil, err
	}

	var steps []ScenarioStep
	observe := func(name string, pmt *ertp.Payment) error {
		a, err := alice.GetCurrentFullBalance(ctx)
		if err != nil {
			return err
		}
		b, err := bob.GetCurrentFullBalance(ctx)
		if err != nil {
			return err
		}
		step := ScenarioStep{
			Step:       name,
			Alice:      a.Value.String(),
			Bob:        b.Value.String(),
			Encumbered: alice.GetCurrentEncumberedBalance().Value.String(),
		}
		if pmt != nil {
			if step.PaymentLive, err = kit.Issuer.IsLive(ctx, pmt); err != nil {
				return err
			}
		}
		steps = append(steps, step)
		return nil
	}

	minted, err := kit.Mint.MintPayment(ctx, ertp.MakeAmount(kit.Brand, 300))
	if err != nil {
		return nil, err
	}
	if _, err := alice.Deposit(ctx, minted, nil); err != nil {
		return nil, err
	}
	if err := observe("mint 300 to alice", minted); err != nil {
		return nil, err
	}

	pmt, err := alice.Withdraw(ctx, ertp.MakeAmount(kit.Brand, 100))
	if err != nil {
		return nil, err
	}
	if err := observe("alice withdraws 100", pmt); err != nil {
		return nil, err
	}

	if _, err := bob.Deposit(ctx, pmt, nil); err != nil {
		return nil, err
	}
	if err := observe("bob deposits", pmt); err != nil {
		return nil, err
	}

	small, err := alice.Withdraw(ctx, ertp.MakeAmount(kit.Brand, 2))
	if err != nil {
		return nil, err
	}
	if _, err := kit.Issuer.Burn(ctx, small, nil); err != nil {
		return nil, err
	}
	if err := observe("alice burns 2", small); err != nil {
		return nil, err
	}
	return steps, nil
}

func printSteps(w io.Writer, format string, steps []ScenarioStep) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(steps)
	}
	for _, s := range steps {
		_, err := fmt.Fprintf(w, "%-20s alice=%s bob=%s encumbered=%s live=%t\n",
			s.Step, s.Alice, s.Bob, s.Encumbered, s.PaymentLive)
		if err != nil {
			return err
		}
	}
	return nil
}

func levelOr(level, fallback string) string {
	if level == "" {
		return fallback
	}
	return level
}

package genesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/logging"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
)

const sample = `
chains:
  - name: agoric
    accounts: 2
  - name: osmosis
    accounts: 1
denoms:
  - denom: ubld
    chain: agoric
mints:
  - to: "agoric:1"
    denom: ubld
    value: "1000"
  - to: "osmosis:1"
    denom: ubld
    value: "250"
`

func balanceOf(t *testing.T, e *ledger.Engine, addr string, denom ledger.Denom) int64 {
	t.Helper()
	a, err := ledger.ParseAddress(addr)
	require.NoError(t, err)
	acct, err := e.Account(context.Background(), a)
	require.NoError(t, err)
	bal, err := acct.GetBalance(context.Background(), denom)
	require.NoError(t, err)
	return bal.Value.Int64()
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	g, err := Load(path)
	require.NoError(t, err)
	require.Len(t, g.Chains, 2)

	ctx := context.Background()
	engine := ledger.NewInMemory()
	orch := orchestrator.New(engine, orchestrator.WithAdmin(engine.Admin()))
	require.NoError(t, Apply(ctx, orch, g, logging.Discard()))

	assert.Equal(t, int64(1000), balanceOf(t, engine, "agoric:1", "ubld"))
	assert.Equal(t, int64(0), balanceOf(t, engine, "agoric:2", "ubld"))
	assert.Equal(t, int64(250), balanceOf(t, engine, "osmosis:1", "ubld"))

	supply, err := engine.Supply(ctx, "ubld")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), supply.Minted.Int64())
}

func TestApplyTwiceDoesNotDuplicate(t *testing.T) {
	g, err := Parse([]byte(sample))
	require.NoError(t, err)

	ctx := context.Background()
	engine := ledger.NewInMemory()
	require.NoError(t, Apply(ctx, orchestrator.New(engine, orchestrator.WithAdmin(engine.Admin())), g, logging.Discard()))
	require.NoError(t, Apply(ctx, orchestrator.New(engine, orchestrator.WithAdmin(engine.Admin())), g, logging.Discard()))

	assert.Equal(t, int64(1000), balanceOf(t, engine, "agoric:1", "ubld"))
	_, err = engine.Account(ctx, ledger.AccountAddress{ChainID: "agoric", Value: "3"})
	require.ErrorIs(t, err, ledger.ErrUnknownDestination)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "chains:\n  - name: agoric\n    acounts: 1\n",
		"missing name":  "chains:\n  - accounts: 1\n",
		"bad address":   "mints:\n  - to: agoric\n    denom: ubld\n    value: \"1\"\n",
		"bad value":     "mints:\n  - to: \"agoric:1\"\n    denom: ubld\n    value: \"-5\"\n",
		"denom chain":   "denoms:\n  - denom: ubld\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	g, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, g.Chains)
}

var errReadFailed = errors.New("read failed")

// unreadableAccounts fails every read of the accounts bucket.
type unreadableAccounts struct {
	kvstore.Backend
}

func (b unreadableAccounts) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "accounts" {
		return nil, errReadFailed
	}
	return b.Backend.Get(ctx, bucket, key)
}

func TestApplyStopsOnLookupFailure(t *testing.T) {
	g, err := Parse([]byte("chains:\n  - name: agoric\n    accounts: 2\n"))
	require.NoError(t, err)

	ctx := context.Background()
	backend := kvstore.NewMemory()
	engine := ledger.NewEngine(unreadableAccounts{Backend: backend})
	err = Apply(ctx, orchestrator.New(engine), g, logging.Discard())
	require.ErrorIs(t, err, errReadFailed)

	keys, err := backend.Keys(ctx, "accounts", "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

package orchestrator

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ghostchain/internal/ertp"
	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
)

func TestProvideKitCreatesAndCaches(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	orch := New(engine, WithAdmin(engine.Admin()))

	kit, err := orch.ProvideKit(ctx, "bucks", "agoric")
	require.NoError(t, err)
	require.NotNil(t, kit.Mint)
	assert.Equal(t, "bucks", kit.Brand.Name())

	again, err := orch.ProvideKit(ctx, "bucks", "agoric")
	require.NoError(t, err)
	assert.Same(t, kit, again)

	info, err := engine.GetDenomInfo(ctx, "bucks")
	require.NoError(t, err)
	assert.Equal(t, ledger.ChainName("agoric"), info.Chain)
	assert.NotContains(t, orch.kits, kitKey{denom: "ubld", chain: "osmosis"})
}

func TestProvideKitExistingDenomIsMintless(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	_, err := engine.Admin().MakeDenom(ctx, "uatom", "cosmoshub")
	require.NoError(t, err)

	orch := New(engine, WithAdmin(engine.Admin()))
	kit, err := orch.ProvideKit(ctx, "uatom", "cosmoshub")
	require.NoError(t, err)
	assert.Nil(t, kit.Mint)
	assert.Nil(t, kit.Minter)
}

func TestProvideKitWithoutAdmin(t *testing.T) {
	ctx := context.Background()
	orch := New(ledger.NewInMemory())

	_, err := orch.ProvideKit(ctx, "bucks", "agoric")
	require.ErrorIs(t, err, ErrNoAdminRights)
}

func TestOrchestratedScenario(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	orch := New(engine, WithAdmin(engine.Admin()))

	kit, err := orch.ProvideKit(ctx, "bucks", "agoric")
	require.NoError(t, err)

	alice, err := kit.Issuer.MakeEmptyPurse(ctx)
	require.NoError(t, err)
	osmosis, err := orch.GetChain(ctx, "osmosis")
	require.NoError(t, err)
	bobAcct, err := osmosis.MakeAccount(ctx)
	require.NoError(t, err)

	require.NoError(t, orch.Faucet(ctx, alice.Address(), ledger.NewDenomAmount("bucks", 300), "agoric"))

	pmt, err := alice.Withdraw(ctx, ertp.MakeAmount(kit.Brand, 100))
	require.NoError(t, err)
	_, err = kit.Issuer.SendPayment(ctx, pmt, bobAcct.Address(), nil)
	require.NoError(t, err)

	bal, err := bobAcct.GetBalance(ctx, "bucks")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.Value.Int64())
	full, err := alice.GetCurrentFullBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), full.Value.Int64())
}

func TestFaucetMintsExistingDenomWithAdmin(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	_, err := engine.Admin().MakeDenom(ctx, "uatom", "cosmoshub")
	require.NoError(t, err)

	chain, err := engine.GetChain(ctx, "cosmoshub")
	require.NoError(t, err)
	acct, err := chain.MakeAccount(ctx)
	require.NoError(t, err)

	err = New(engine).Faucet(ctx, acct.Address(), ledger.NewDenomAmount("uatom", 5), "cosmoshub")
	require.ErrorIs(t, err, ErrNoAdminRights)

	orch := New(engine, WithAdmin(engine.Admin()))
	kit, err := orch.ProvideKit(ctx, "uatom", "cosmoshub")
	require.NoError(t, err)
	assert.Nil(t, kit.Mint)

	require.NoError(t, orch.Faucet(ctx, acct.Address(), ledger.NewDenomAmount("uatom", 5), "cosmoshub"))
	bal, err := acct.GetBalance(ctx, "uatom")
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Value.Int64())
}

func TestFailedFaucetLeavesNoDenom(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	orch := New(engine, WithAdmin(engine.Admin()))

	err := orch.Faucet(ctx, ledger.AccountAddress{ChainID: "cosmos", Value: "9"}, ledger.NewDenomAmount("atom", 5), "cosmos")
	require.ErrorIs(t, err, ledger.ErrUnknownDestination)
	_, err = engine.GetDenomInfo(ctx, "atom")
	require.ErrorIs(t, err, ledger.ErrUnknownDenom)

	chain, err := orch.GetChain(ctx, "cosmos")
	require.NoError(t, err)
	acct, err := chain.MakeAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", acct.Address().Value)

	err = orch.Faucet(ctx, acct.Address(), ledger.DenomAmount{Denom: "atom", Value: big.NewInt(-1)}, "cosmos")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = engine.GetDenomInfo(ctx, "atom")
	require.ErrorIs(t, err, ledger.ErrUnknownDenom)

	next, err := chain.MakeAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", next.Address().Value)
}

func TestFaucetSurvivesReopenedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ghost.db")

	store, err := kvstore.OpenSQLite(path)
	require.NoError(t, err)
	engine := ledger.NewEngine(store)
	chain, err := engine.GetChain(ctx, "agoric")
	require.NoError(t, err)
	acct, err := chain.MakeAccount(ctx)
	require.NoError(t, err)
	require.NoError(t, New(engine, WithAdmin(engine.Admin())).Faucet(ctx, acct.Address(), ledger.NewDenomAmount("bucks", 5), "agoric"))
	require.NoError(t, store.Close())

	store, err = kvstore.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	engine = ledger.NewEngine(store)
	orch := New(engine, WithAdmin(engine.Admin()), WithZone(kvstore.NewZone(store)))
	require.NoError(t, orch.Faucet(ctx, acct.Address(), ledger.NewDenomAmount("bucks", 7), "agoric"))

	reopened, err := engine.Account(ctx, acct.Address())
	require.NoError(t, err)
	bal, err := reopened.GetBalance(ctx, "bucks")
	require.NoError(t, err)
	assert.Equal(t, int64(12), bal.Value.Int64())

	supply, err := engine.Supply(ctx, "bucks")
	require.NoError(t, err)
	assert.Equal(t, int64(12), supply.Minted.Int64())
}

func TestFaucetHandler(t *testing.T) {
	ctx := context.Background()
	engine := ledger.NewInMemory()
	chain, err := engine.GetChain(ctx, "agoric")
	require.NoError(t, err)
	acct, err := chain.MakeAccount(ctx)
	require.NoError(t, err)

	orch := New(engine, WithAdmin(engine.Admin()))
	app := fiber.New()
	app.Post("/faucet", NewHandler(orch).Faucet)
	noAdmin := fiber.New()
	noAdmin.Post("/faucet", NewHandler(New(engine)).Faucet)

	post := func(app *fiber.App, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/faucet", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusCreated, post(app, `{"chain":"agoric","address":"1","denom":"ubld","value":"1000"}`))
	assert.Equal(t, http.StatusBadRequest, post(app, `{"chain":"agoric","address":"1","denom":"ubld","value":"x"}`))
	assert.Equal(t, http.StatusNotFound, post(app, `{"chain":"agoric","address":"42","denom":"ubld","value":"1"}`))
	assert.Equal(t, http.StatusForbidden, post(noAdmin, `{"chain":"agoric","address":"1","denom":"uist","value":"1"}`))

	bal, err := acct.GetBalance(ctx, "ubld")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.Value.Int64())

	osmosis, err := engine.GetChain(ctx, "osmosis")
	require.NoError(t, err)
	remote, err := osmosis.MakeAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, post(app, `{"chain":"osmosis","address":"1","denom":"ubld","value":"4"}`))
	bal, err = remote.GetBalance(ctx, "ubld")
	require.NoError(t, err)
	assert.Equal(t, int64(4), bal.Value.Int64())

	info, err := engine.GetDenomInfo(ctx, "ubld")
	require.NoError(t, err)
	assert.Equal(t, ledger.ChainName("agoric"), info.Chain)
	assert.NotContains(t, orch.kits, kitKey{denom: "ubld", chain: "osmosis"})
}

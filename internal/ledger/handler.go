package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the engine over HTTP for inspection and manual transfers.
type Handler struct {
	engine *Engine
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type accountResponse struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

type balanceView struct {
	Denom string `json:"denom"`
	Value string `json:"value"`
}

type transferRequest struct {
	ToChain   string `json:"to_chain"`
	ToAddress string `json:"to_address"`
	Denom     string `json:"denom"`
	Value     string `json:"value"`
}

// MakeAccount opens a new account on the chain in the path.
func (h *Handler) MakeAccount(c *fiber.Ctx) error {
	chain, err := h.engine.GetChain(c.UserContext(), ChainName(c.Params("chain")))
	if err != nil {
		return HTTPError(err)
	}
	acct, err := chain.MakeAccount(c.UserContext())
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(accountResponse{
		Chain:   string(chain.Name()),
		Address: acct.Address().Value,
	})
}

// Balances lists every denomination held by an account.
func (h *Handler) Balances(c *fiber.Ctx) error {
	addr := AccountAddress{ChainID: ChainName(c.Params("chain")), Value: c.Params("address")}
	acct, err := h.engine.Account(c.UserContext(), addr)
	if err != nil {
		return HTTPError(err)
	}
	balances, err := acct.GetBalances(c.UserContext())
	if err != nil {
		return HTTPError(err)
	}
	out := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceView{Denom: string(b.Denom), Value: b.Value.String()})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":  addr.String(),
		"balances": out,
	})
}

// Transfer moves value from the account in the path to any address.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amt, err := ParseDenomAmount(Denom(req.Denom), req.Value)
	if err != nil {
		return HTTPError(err)
	}
	ctx := c.UserContext()
	source, err := h.engine.Account(ctx, AccountAddress{ChainID: ChainName(c.Params("chain")), Value: c.Params("address")})
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	dest := AccountAddress{ChainID: ChainName(req.ToChain), Value: req.ToAddress}
	if err := source.Send(ctx, dest, amt); err != nil {
		return HTTPError(err)
	}
	bal, err := source.GetBalance(ctx, amt.Denom)
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"from":         source.Address().String(),
		"to":           dest.String(),
		"denom":        req.Denom,
		"value":        amt.Value.String(),
		"from_balance": bal.Value.String(),
	})
}

// Denom reports the issuing chain and supply of a denomination.
func (h *Handler) Denom(c *fiber.Ctx) error {
	denom := Denom(c.Params("denom"))
	info, err := h.engine.GetDenomInfo(c.UserContext(), denom)
	if err != nil {
		return HTTPError(err)
	}
	supply, err := h.engine.Supply(c.UserContext(), denom)
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"denom":       string(info.Denom),
		"chain":       string(info.Chain),
		"minted":      supply.Minted.String(),
		"burned":      supply.Burned.String(),
		"outstanding": supply.Outstanding().String(),
	})
}

// HTTPError maps ledger errors to fiber errors.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrOverdraft), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidChain), errors.Is(err, ErrDenomMismatch),
		errors.Is(err, ErrNilAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnknownDestination), errors.Is(err, ErrUnknownDenom):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDenomAlreadyExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}


package orchestrator

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ghostchain/internal/ledger"
)

// Handler exposes the faucet over HTTP.
type Handler struct {
	orch *Orchestrator
}

// NewHandler builds a faucet handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

type faucetRequest struct {
	Chain        string `json:"chain"`
	Address      string `json:"address"`
	Denom        string `json:"denom"`
	Value        string `json:"value"`
	IssuingChain string `json:"issuing_chain"`
}

// Faucet mints value into an existing account. Without issuing_chain the
// denom's registered chain is used, or the destination chain for a new denom.
func (h *Handler) Faucet(c *fiber.Ctx) error {
	var req faucetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amt, err := ledger.ParseDenomAmount(ledger.Denom(req.Denom), req.Value)
	if err != nil {
		return ledger.HTTPError(err)
	}
	issuing := req.IssuingChain
	if issuing == "" {
		issuing = req.Chain
		info, err := h.orch.Engine().GetDenomInfo(c.UserContext(), amt.Denom)
		switch {
		case err == nil:
			issuing = string(info.Chain)
		case !errors.Is(err, ledger.ErrUnknownDenom):
			return ledger.HTTPError(err)
		}
	}
	dest := ledger.AccountAddress{ChainID: ledger.ChainName(req.Chain), Value: req.Address}

	if err := h.orch.Faucet(c.UserContext(), dest, amt, ledger.ChainName(issuing)); err != nil {
		if errors.Is(err, ErrNoAdminRights) {
			return fiber.NewError(http.StatusForbidden, err.Error())
		}
		return ledger.HTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"to":    dest.String(),
		"denom": req.Denom,
		"value": amt.Value.String(),
	})
}

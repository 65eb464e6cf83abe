package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/congo-pay/ghostchain/internal/config"
	"github.com/congo-pay/ghostchain/internal/infra"
	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/logging"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
)

func TestErrorsRenderAsJSON(t *testing.T) {
	engine := ledger.NewInMemory()
	srv := New(config.Config{AppName: "test", StoreBackend: config.BackendMemory},
		orchestrator.New(engine), &infra.Resources{Backend: kvstore.NewMemory()}, logging.Discard())

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/denoms/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
}

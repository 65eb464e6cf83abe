package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ghostchain/internal/logging"
)

type counter struct{ calls int }

func setupTestApp(t *testing.T) (*fiber.App, *counter) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	hits := &counter{}
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/chains/:chain/accounts", func(c *fiber.Ctx) error {
		hits.calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"address": hits.calls})
	})
	app.Post("/fails", func(c *fiber.Ctx) error {
		hits.calls++
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})
	app.Get("/chains/:chain/accounts", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, hits
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupTestApp(t)

	if status, _ := post(t, app, "/chains/agoric/accounts", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	app, hits := setupTestApp(t)

	status, first := post(t, app, "/chains/agoric/accounts", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}
	status, second := post(t, app, "/chains/agoric/accounts", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected replayed body %s got %s", first, second)
	}
	if hits.calls != 1 {
		t.Fatalf("handler ran %d times", hits.calls)
	}
}

func TestIdempotencyKeysAreScopedByPath(t *testing.T) {
	app, hits := setupTestApp(t)

	post(t, app, "/chains/agoric/accounts", "same")
	post(t, app, "/chains/osmosis/accounts", "same")
	if hits.calls != 2 {
		t.Fatalf("expected both paths to run, got %d calls", hits.calls)
	}
}

func TestIdempotencyReleasesFailedRequests(t *testing.T) {
	app, hits := setupTestApp(t)

	for i := 0; i < 2; i++ {
		if status, _ := post(t, app, "/fails", "retry-me"); status != fiber.StatusBadRequest {
			t.Fatalf("attempt %d: expected %d got %d", i, fiber.StatusBadRequest, status)
		}
	}
	if hits.calls != 2 {
		t.Fatalf("failed request should be retryable, got %d calls", hits.calls)
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/chains/agoric/accounts", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

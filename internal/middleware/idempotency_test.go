package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ZeroR0R/LSBank/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if caller := c.Get("X-Test-Caller"); caller != "" {
			c.Locals(addressLocal, common.HexToAddress(caller))
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/bank/deposit", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/bank/fail", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return fiber.NewError(fiber.StatusConflict, "account already has an active deposit")
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key, caller string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
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
	if status, _ := post(t, app, "/bank/deposit", "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, first := post(t, app, "/bank/deposit", "abc123", "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}
	status, second := post(t, app, "/bank/deposit", "abc123", "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("handler ran %d times", n)
	}
}

func TestIdempotencyKeysAreScopedByCaller(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "/bank/deposit", "same", "0x00000000000000000000000000000000000000a1")
	post(t, app, "/bank/deposit", "same", "0x00000000000000000000000000000000000000b2")
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected both callers to run, got %d", n)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	app, calls := setupTestApp(t)

	for i := 0; i < 2; i++ {
		if status, _ := post(t, app, "/bank/fail", "retry", ""); status != fiber.StatusConflict {
			t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
		}
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("failed requests must be retryable, handler ran %d times", n)
	}
}

func TestIdempotencyWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	if status, _ := post(t, app, "/x", "", ""); status != fiber.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", status)
	}
}

package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shieldpay/shieldpay/internal/config"
	"github.com/shieldpay/shieldpay/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:          "ShieldPay",
		AppEnv:           "test",
		Port:             "0",
		Network:          "Dolphin",
		WalletBackend:    "extension",
		FeeEstimate:      decimal.NewFromInt(50),
		SuggestedMinFee:  decimal.NewFromInt(150),
		RefreshInterval:  time.Hour,
		IdempotencyTTL:   time.Minute,
		SendRateLimit:    5,
		MinWalletVersion: "1.0.0",
	}
}

func newTestApp(t *testing.T) (*fiber.App, *Services) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	d := Deps{Cfg: testConfig(), Cache: cache, Logger: logging.Discard()}
	svc, err := Build(context.Background(), d)
	require.NoError(t, err)

	app := fiber.New()
	Setup(app, d, svc)
	return app, svc
}

func call(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestBuildRequiresStoresOutsideDevelopment(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	_, err := Build(context.Background(), Deps{Cfg: cfg})
	require.Error(t, err)
}

func TestHealthAndPing(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := call(t, app, fiber.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	status := body["status"].(map[string]any)
	require.Equal(t, "disabled", status["postgres"])
	require.Equal(t, "ok", status["redis"])
	require.Equal(t, "connected", status["chain"])

	code, body = call(t, app, fiber.MethodGet, "/api/v1/ping", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Dolphin", body["network"])
	require.NotEmpty(t, body["request_id"])
}

func TestAccountSelectionFollowsIntoSendState(t *testing.T) {
	app, svc := newTestApp(t)

	code, body := call(t, app, fiber.MethodGet, "/api/v1/accounts", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["accounts"], 2)

	bob := svc.Devnet.Accounts[1].Address
	code, _ = call(t, app, fiber.MethodPut, "/api/v1/accounts/selected", `{"address":"`+bob+`"}`, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, bob, svc.Engine.State().SenderPublicAddress)

	code, _ = call(t, app, fiber.MethodPut, "/api/v1/accounts/selected", `{"address":"nobody"}`, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestSendFlowThroughRouter(t *testing.T) {
	app, svc := newTestApp(t)
	require.NoError(t, svc.Refresher.Tick(context.Background()))

	code, body := call(t, app, fiber.MethodGet, "/api/v1/send", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "To Private", body["mode"])

	code, _ = call(t, app, fiber.MethodPut, "/api/v1/send/target", `{"amount":"1.5"}`, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, app, fiber.MethodPost, "/api/v1/send", "", nil)
	require.Equal(t, http.StatusBadRequest, code, "idempotency key is required")

	key := map[string]string{"Idempotency-Key": "send-1"}
	code, body = call(t, app, fiber.MethodPost, "/api/v1/send?wait=true", "", key)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "finalized", body["phase"])
	submitted := len(svc.Devnet.Chain.Submitted())

	code, body = call(t, app, fiber.MethodPost, "/api/v1/send?wait=true", "", key)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "finalized", body["phase"])
	require.Len(t, svc.Devnet.Chain.Submitted(), submitted, "replay must not resubmit")

	code, body = call(t, app, fiber.MethodGet, "/api/v1/history", "", nil)
	require.Equal(t, http.StatusOK, code)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	require.Equal(t, "To Private", events[0].(map[string]any)["mode"])

	code, body = call(t, app, fiber.MethodGet, "/api/v1/wallet", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["ready"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, svc := newTestApp(t)
	require.NoError(t, svc.Refresher.Tick(context.Background()))

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "refresh")
}

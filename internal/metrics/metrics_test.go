package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndExposition(t *testing.T) {
	m := New()
	m.Step("internal", "finalized")
	m.Step("internal", "finalized")
	m.Send("To Private", "finalized")

	if got := testutil.ToFloat64(m.steps.WithLabelValues("internal", "finalized")); got != 2 {
		t.Fatalf("expected 2 internal steps, got %v", got)
	}

	app := fiber.New()
	app.Get("/metrics", m.Handler())
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "shieldpay_engine_sends_total") {
		t.Fatalf("missing send counter in exposition:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Step("external", "failed")
	m.Send("Public Transfer", "failed")
	m.Refresh("ok")
}

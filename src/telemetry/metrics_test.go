package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.SetBuildInfo("0.1.0", "abc")
	m.MessagesSent.WithLabelValues("gossip").Inc()
	m.Peers.Set(3)

	if v := testutil.ToFloat64(m.MessagesSent.WithLabelValues("gossip")); v != 1 {
		t.Fatalf("messages_sent_total should be 1, not %v", v)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	for _, want := range []string{
		`gossipnet_messages_sent_total{kind="gossip"} 1`,
		`gossipnet_peers 3`,
		`gossipnet_build_info{git_sha="abc",version="0.1.0"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output should contain %q", want)
		}
	}
}

func TestInstrument(t *testing.T) {
	m := NewMetrics()

	h := m.Instrument("peers", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/peers", nil))

	if v := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("peers", "4xx")); v != 1 {
		t.Fatalf("one 4xx request should be counted, got %v", v)
	}
}

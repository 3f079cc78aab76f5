package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/detector"
	"github.com/hamed0406/downdetector/internal/domain"
	apimw "github.com/hamed0406/downdetector/internal/httpapi/middleware"
	"github.com/hamed0406/downdetector/internal/repo"
	"github.com/hamed0406/downdetector/internal/repo/memory"
	"github.com/hamed0406/downdetector/internal/scheduler"
)

// ---- test helpers ----

type fakeThroughput struct {
	r  scheduler.Reading
	ok bool
}

func (f fakeThroughput) Latest() (scheduler.Reading, bool) { return f.r, f.ok }

var t0 = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ts    *httptest.Server
	det   *detector.Detector
	store *memory.Store
}

func setup(t *testing.T, tp Throughput) *fixture {
	t.Helper()
	store := memory.New()
	det := detector.New([]domain.HostID{"1.1.1.1", "8.8.8.8"}, detector.Hooks{
		OnNetworkBackUp: func(ev domain.DowntimeEvent) {
			_ = store.Append(context.Background(), &repo.Record{Event: ev})
		},
	}, zap.NewNop())

	srv := NewServer(zap.NewNop(), det, store, tp)
	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(keys, nil, 10_000, 10_000, 10_000, 10_000))
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, det: det, store: store}
}

func (f *fixture) do(t *testing.T, method, path, key string, body []byte) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, f.ts.URL+path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) observe(t *testing.T, host, msg string, at time.Time) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"host": host, "message": msg, "timestamp": at})
	return f.do(t, http.MethodPost, "/api/observations", "adm_test", body)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// ---- tests ----

func TestObserve_DownThenUp(t *testing.T) {
	f := setup(t, nil)

	if resp := f.observe(t, "1.1.1.1", "Request timeout for icmp_seq 0", t0); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("want 202, got %d", resp.StatusCode)
	}
	resp := f.observe(t, "8.8.8.8", "Request timeout for icmp_seq 0", t0.Add(time.Second))
	var out observeResponse
	decode(t, resp, &out)
	if out.Outcome != domain.OutcomeDown || !out.NetworkDown {
		t.Fatalf("want down outcome and network down, got %+v", out)
	}

	var st statusResponse
	decode(t, f.do(t, http.MethodGet, "/api/status", "pub_test", nil), &st)
	if !st.NetworkDown || st.Since == nil || !st.Since.Equal(t0.Add(time.Second)) {
		t.Fatalf("unexpected status while down: %+v", st)
	}
	if st.TrackedHosts != 2 || st.RecordedEvents != 0 {
		t.Fatalf("unexpected counts: %+v", st)
	}

	if resp := f.do(t, http.MethodGet, "/api/events/last", "pub_test", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 before any event, got %d", resp.StatusCode)
	}

	f.observe(t, "1.1.1.1", "64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=11.2 ms", t0.Add(10*time.Second))

	var evs []domain.DowntimeEvent
	decode(t, f.do(t, http.MethodGet, "/api/events", "pub_test", nil), &evs)
	if len(evs) != 1 || evs[0].Duration != 9*time.Second {
		t.Fatalf("unexpected events: %+v", evs)
	}

	var last domain.DowntimeEvent
	decode(t, f.do(t, http.MethodGet, "/api/events/last", "pub_test", nil), &last)
	if !last.Start.Equal(t0.Add(time.Second)) || !last.End.Equal(t0.Add(10*time.Second)) {
		t.Fatalf("unexpected last event: %+v", last)
	}

	var hist []repo.Record
	decode(t, f.do(t, http.MethodGet, "/api/history", "pub_test", nil), &hist)
	if len(hist) != 1 || hist[0].ID == "" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestObserve_Invalid(t *testing.T) {
	f := setup(t, nil)

	cases := map[string]string{
		"not json":          `{`,
		"missing host":      `{"message":"x","timestamp":"2025-08-18T12:00:00Z"}`,
		"missing message":   `{"host":"1.1.1.1","timestamp":"2025-08-18T12:00:00Z"}`,
		"missing timestamp": `{"host":"1.1.1.1","message":"x"}`,
		"zero timestamp":    `{"host":"1.1.1.1","message":"x","timestamp":"0001-01-01T00:00:00Z"}`,
	}
	for name, body := range cases {
		resp := f.do(t, http.MethodPost, "/api/observations", "adm_test", []byte(body))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", name, resp.StatusCode)
		}
	}
	if f.det.IsNetworkDown() || len(f.det.Hosts()) != 2 {
		t.Fatal("rejected input must not change state")
	}
}

func TestObserve_OutOfOrderIsConflict(t *testing.T) {
	f := setup(t, nil)
	f.observe(t, "1.1.1.1", "64 bytes from 1.1.1.1", t0.Add(time.Minute))
	if resp := f.observe(t, "1.1.1.1", "Request timeout", t0); resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409, got %d", resp.StatusCode)
	}
}

func TestObserve_RequiresAdmin(t *testing.T) {
	f := setup(t, nil)
	body := []byte(`{"host":"1.1.1.1","message":"x","timestamp":"2025-08-18T12:00:00Z"}`)
	if resp := f.do(t, http.MethodPost, "/api/observations", "pub_test", body); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 with public key, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/status", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp.StatusCode)
	}
}

func TestHosts_SortedWithUnobserved(t *testing.T) {
	f := setup(t, nil)
	f.observe(t, "9.9.9.9", "64 bytes from 9.9.9.9", t0)

	var hosts []struct {
		Host    string `json:"host"`
		Outcome string `json:"outcome"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/hosts", "pub_test", nil), &hosts)
	if len(hosts) != 3 {
		t.Fatalf("want 3 hosts, got %+v", hosts)
	}
	want := []struct{ host, outcome string }{
		{"1.1.1.1", ""}, {"8.8.8.8", ""}, {"9.9.9.9", "success"},
	}
	for i, w := range want {
		if hosts[i].Host != w.host || hosts[i].Outcome != w.outcome {
			t.Fatalf("hosts[%d] = %+v, want %+v", i, hosts[i], w)
		}
	}
}

func TestClassify(t *testing.T) {
	f := setup(t, nil)
	cases := map[string]domain.Outcome{
		"64 bytes from 8.8.8.8":     domain.OutcomeSuccess,
		"Request timeout for seq 3": domain.OutcomeDown,
		"PING 8.8.8.8":              domain.OutcomeUnknown,
	}
	for msg, want := range cases {
		req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/api/classify", nil)
		q := req.URL.Query()
		q.Set("message", msg)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("X-API-Key", "pub_test")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		var out map[string]domain.Outcome
		decode(t, resp, &out)
		resp.Body.Close()
		if out["outcome"] != want {
			t.Fatalf("classify(%q) = %q, want %q", msg, out["outcome"], want)
		}
	}
}

func TestThroughput(t *testing.T) {
	f := setup(t, nil)
	if resp := f.do(t, http.MethodGet, "/api/throughput", "pub_test", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 without speed test, got %d", resp.StatusCode)
	}

	f = setup(t, fakeThroughput{ok: true, r: scheduler.Reading{URL: "https://example.com", Rate: "12 Mb/s"}})
	var rd scheduler.Reading
	decode(t, f.do(t, http.MethodGet, "/api/throughput", "pub_test", nil), &rd)
	if rd.Rate != "12 Mb/s" {
		t.Fatalf("unexpected reading: %+v", rd)
	}
}

package cli

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/detector"
	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/httpapi"
	apimw "github.com/hamed0406/downdetector/internal/httpapi/middleware"
)

func apiServer(t *testing.T) *httptest.Server {
	t.Helper()
	det := detector.New([]domain.HostID{"1.1.1.1"}, detector.Hooks{}, zap.NewNop())
	srv := httpapi.NewServer(zap.NewNop(), det, nil, nil)
	ts := httptest.NewServer(srv.Router(apimw.Keys{Admin: []string{"adm"}}, nil, 0, 0, 0, 0))
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_ObserveStatusEvents(t *testing.T) {
	ts := apiServer(t)
	api := []string{"--api", ts.URL, "--key", "adm"}

	out, err := run(t, append([]string{"events", "--last"}, api...)...)
	require.NoError(t, err)
	assert.Equal(t, msgNoDowntime+"\n", out)

	out, err = run(t, append([]string{"observe", "1.1.1.1", "Request", "timeout", "for", "icmp_seq", "0", "--at", "2025-08-18T12:00:00Z"}, api...)...)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1: down (network DOWN)\n", out)

	out, err = run(t, append([]string{"status"}, api...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Network: DOWN since ")
	assert.Contains(t, out, "Tracked hosts: 1")

	out, err = run(t, append([]string{"observe", "1.1.1.1", "64 bytes from 1.1.1.1", "--at", "2025-08-18T12:01:30Z"}, api...)...)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1: success (network UP)\n", out)

	out, err = run(t, append([]string{"events"}, api...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "1 intervals, 1m30s total")

	out, err = run(t, append([]string{"hosts"}, api...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1.1.1.1")
	assert.Contains(t, out, "success")
}

func TestCLI_ObserveErrors(t *testing.T) {
	ts := apiServer(t)

	_, err := run(t, "observe", "1.1.1.1", "x", "--api", ts.URL, "--key", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = run(t, "observe", "1.1.1.1", "x", "--at", "yesterday", "--api", ts.URL)
	assert.ErrorContains(t, err, "invalid --at")

	_, err = run(t, "observe", "1.1.1.1", "x", "--api", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "contacting API")
}

func TestCLI_ClassifyIsLocal(t *testing.T) {
	out, err := run(t, "classify", "64", "bytes", "from", "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "success\n", out)

	out, err = run(t, "classify", "ping: sendto: No route to host")
	require.NoError(t, err)
	assert.Equal(t, "unknown\n", out)
}

func TestPrintHostsAndStatus(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 10, 0, 0, time.UTC)
	var b bytes.Buffer
	printHosts(&b, []hostRow{
		{Host: "1.1.1.1"},
		{Host: "8.8.8.8", Outcome: "down", Message: "Request timeout", Timestamp: now.Add(-2 * time.Minute)},
	}, now)
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "pending")
	assert.Contains(t, lines[2], "2 minutes ago")

	b.Reset()
	printStatus(&b, status{TrackedHosts: 2}, now)
	assert.Equal(t, "Network: UP\nTracked hosts: 2\nRecorded events: 0\n", b.String())
}

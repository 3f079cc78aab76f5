// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hamed0406/downdetector/internal/config"
	"github.com/hamed0406/downdetector/internal/netif"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load()
	if err != nil {
		fail(err.Error())
	}

	if len(cfg.Hosts) == 0 {
		fail("HOSTS is empty (nothing to ping; the network can never be reported down).")
	}
	for _, h := range cfg.Hosts {
		if net.ParseIP(h) == nil {
			warn(fmt.Sprintf("host %q is not an IP address; a DNS outage will look like a network outage", h))
		}
	}
	ok(fmt.Sprintf("HOSTS=%s", strings.Join(cfg.Hosts, ",")))
	if len(cfg.Hosts) == 1 {
		warn("only one host configured; a single unreachable host will be reported as a network outage")
	}

	if path, err := exec.LookPath("ping"); err != nil {
		fail("ping binary not found in PATH")
	} else {
		ok("ping=" + path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg.PingInterface != "" {
		iface, found, err := netif.Lookup(ctx, cfg.PingInterface)
		switch {
		case err != nil:
			warn("could not list interfaces: " + err.Error())
		case !found:
			fail(fmt.Sprintf("PING_INTERFACE=%s is not an active interface (see `cli interfaces`)", cfg.PingInterface))
		default:
			ok(fmt.Sprintf("PING_INTERFACE=%s (%s)", iface.Name, strings.Join(iface.Addrs, ",")))
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		fail("ADMIN_API_KEYS is empty (observation ingestion would be open to anyone).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; read routes accept admin keys only.")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(os.Getenv(name), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("ADDR=" + cfg.Addr)

	switch {
	case cfg.DatabaseURL != "":
		ok("DATABASE_URL present (postgres history)")
	case cfg.SQLitePath != "":
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		warn("DATABASE_URL and SQLITE_PATH empty; downtime history is kept in memory only.")
	}

	if cfg.SlackWebhook == "" && cfg.RedisURL == "" {
		warn("no SLACK_WEBHOOK_URL or REDIS_URL; transitions are only logged.")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.SpeedTestInterval == 0 {
		warn("SPEEDTEST_INTERVAL_MS=0; throughput measurement disabled.")
	}

	ok("preflight passed")
}

// Command sessionswitch runs a standalone session transport node: it
// opens a loopback pair of session.Session endpoints over the
// transport package, exposes Prometheus metrics, and drives an
// ActionQueue against an in-memory TransactionExecutor. It exists to
// exercise the full pipeline end-to-end outside of a test binary.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mixsession/core/chainactions"
	"github.com/mixsession/core/config"
	"github.com/mixsession/core/metrics"
	"github.com/mixsession/core/session"
	"github.com/mixsession/core/transport"
)

func main() {
	var configPath string
	var verbose bool

	flag.StringVar(&configPath, "config", "sessionswitch.toml", "node configuration file")
	flag.BoolVar(&verbose, "verbose", false, "verbose logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sessionswitch",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	sessionCfg, err := cfg.Session.ToSessionConfig()
	if err != nil {
		logger.Fatal("parsing session config", "err", err)
	}
	queueCfg, err := cfg.ActionQueue.ToActionQueueConfig()
	if err != nil {
		logger.Fatal("parsing action queue config", "err", err)
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pairA, pairB := transport.NewLoopbackPair(ctx, transport.LoopbackConfig{})
	linkA, linkB := pairA.Link(), pairB.Link()

	sessA := session.NewSession(ctx, sessionCfg, linkA, linkB.Inbound(), localAddr("a"), localAddr("b"), logger.With("side", "a"), reg)
	sessB := session.NewSession(ctx, sessionCfg, linkB, linkA.Inbound(), localAddr("b"), localAddr("a"), logger.With("side", "b"), reg)
	defer sessA.Close()
	defer sessB.Close()

	queue := chainactions.NewActionQueue(queueCfg, chainactions.InMemoryExecutor{}, chainactions.NewMapActionState(), nil, reg, logger.With("component", "chainactions"))
	go queue.Run(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	logger.Info("sessionswitch running", "listen_addr", cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	logger.Info("shutting down")
}

type strAddr string

func (a strAddr) Network() string { return "sessionswitch" }
func (a strAddr) String() string  { return string(a) }

func localAddr(s string) net.Addr {
	return strAddr(s)
}

// Command mpsctl drives an Arena outside of any embedding process: it
// loads a config, stands up a reference Shield and pool, and runs the
// poll loop on a ticker until told to stop, the same
// config-load/signal-context/select-loop shape the teacher's cmd/client
// uses to drive its JSON-RPC client.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/mem"

	"github.com/mpscore/mps/arena"
	"github.com/mpscore/mps/cmd/mpsctl/config"
	"github.com/mpscore/mps/core"
	"github.com/mpscore/mps/event"
	"github.com/mpscore/mps/policy"
	"github.com/mpscore/mps/pool"
	"github.com/mpscore/mps/shield"
)

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	rootLogger := slog.New(rootLogHandler)

	die := func() { os.Exit(1) }

	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		die()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prometheusRegistry := prometheus.NewRegistry()
	metrics := arena.NewMetrics(prometheusRegistry)

	recorder := event.NewRecorder()
	a, err := arena.New(arena.Config{
		Grain:       core.Size(cfg.Grain),
		CommitLimit: core.Size(cfg.CommitLimit),
		Policy:      policy.NewDefault(cfg.AllocThreshold, cfg.MaxPollSlice),
		Shield:      shield.New(),
		Sink:        recorder,
		Metrics:     metrics,
		Logger:      rootLogger.With("component", "arena"),
	})
	if err != nil {
		rootLogger.Error("Failed to initialize arena", "error", err)
		die()
	}

	p, err := pool.New(pool.Config{Name: "default", Arena: a, Sink: recorder})
	if err != nil {
		rootLogger.Error("Failed to initialize pool", "error", err)
		die()
	}
	_ = p

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, prometheusRegistry, rootLogger)
	}
	if cfg.ConsoleAddr != "" {
		go serveDescribeConsole(ctx, cfg.ConsoleAddr, a, rootLogger)
	}

	reportHostMemory(rootLogger)

	rootLogger.Info("mpsctl started", "grain", cfg.Grain, "commit_limit", cfg.CommitLimit)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			steps := a.Poll()
			if steps > 0 {
				rootLogger.Debug("poll ran", "steps", steps, "committed", a.Committed())
			}
		case <-ctx.Done():
			rootLogger.Info("shutting down")
			a.Destroy()
			return
		}
	}
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "mpsctl.yaml", "Path to the configuration file.")
	flag.Parse()
	if _, err := os.Stat(*configPath); err != nil {
		log.Printf("No config file at %s, using defaults", *configPath)
		return config.Default(), nil
	}
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

// reportHostMemory logs a one-shot snapshot of host memory, the same way
// a capacity-planning sidecar would size an arena's commit limit against
// available RAM.
func reportHostMemory(logger *slog.Logger) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("could not read host memory", "error", err)
		return
	}
	logger.Info("host memory", "total", vm.Total, "available", vm.Available, "used_percent", vm.UsedPercent)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveDescribeConsole exposes a websocket endpoint that, on each
// incoming message, writes back the arena's current Describe dump — a
// live version of the teacher's cmd/console text UI, but speaking
// websocket frames instead of a terminal menu.
func serveDescribeConsole(ctx context.Context, addr string, a *arena.Arena, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/describe", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			var buf describeBuffer
			if err := a.Describe(&buf, 0); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
				return
			}
		}
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.Info("serving describe console", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("console server stopped", "error", err)
	}
}

// describeBuffer adapts io.Writer to a []byte accumulator without
// depending on bytes.Buffer's broader API surface.
type describeBuffer struct {
	data []byte
}

func (b *describeBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *describeBuffer) Bytes() []byte { return b.data }

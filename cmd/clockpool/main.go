// Command clockpool runs a page workload through the buffer pool and
// prints the pool's statistics and frame table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/bietkhonhungvandi212/clockpool/internal/logger"
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/clockpool/internal/storage/file"
	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

type options struct {
	configPath  string
	mem         bool
	metricsAddr string
	pages       int
	ops         int
	seed        int64
	dump        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (defaults are used when empty)")
	flag.BoolVar(&opts.mem, "mem", false, "use an in-memory page file instead of config path")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flag.IntVar(&opts.pages, "pages", 64, "pages to allocate before the workload")
	flag.IntVar(&opts.ops, "ops", 10000, "random fetch/unpin operations")
	flag.Int64Var(&opts.seed, "seed", 1, "workload seed")
	flag.BoolVar(&opts.dump, "dump", false, "print the frame table when done")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "clockpool:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg := util.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = util.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	meter, shutdown, err := setupMetrics(cfg.Metrics, log)
	if err != nil {
		return err
	}
	defer shutdown()

	var f file.Filer
	if opts.mem {
		f = file.NewMemFile("mem:" + cfg.Path)
	} else {
		fm, err := file.NewFileManager(cfg.Path, cfg.InitialPages)
		if err != nil {
			return fmt.Errorf("open page file: %w", err)
		}
		defer func() {
			if err := fm.Close(); err != nil {
				log.Warn("close page file", zap.Error(err))
			}
		}()
		f = fm
	}

	bp, err := buffer.NewBufferPool(cfg.PoolSize,
		buffer.WithReplacer(cfg.Replacer),
		buffer.WithLogger(log),
		buffer.WithMeter(meter),
	)
	if err != nil {
		return err
	}
	defer bp.Close()

	ids, err := populate(bp, f, opts.pages)
	if err != nil {
		return err
	}
	if err := workload(bp, f, ids, opts.ops, opts.seed); err != nil {
		return err
	}

	stats := bp.Stats()
	log.Info("workload done",
		zap.String("file", f.Name()),
		zap.Uint64("accesses", stats.Accesses),
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("diskReads", stats.DiskReads),
		zap.Uint64("diskWrites", stats.DiskWrites),
		zap.Uint64("evictions", stats.Evictions))

	if opts.dump {
		if err := bp.Dump(os.Stdout); err != nil {
			return err
		}
	}
	return bp.FlushFile(f)
}

// populate allocates n pages, stamping each with its own id.
func populate(bp *buffer.BufferPool, f file.Filer, n int) ([]util.PageID, error) {
	ids := make([]util.PageID, 0, n)
	for i := 0; i < n; i++ {
		id, h, err := bp.AllocatePage(f)
		if err != nil {
			return nil, err
		}
		data, err := h.Data()
		if err != nil {
			return nil, err
		}
		copy(data, fmt.Sprintf("page %d", id))
		if err := h.Release(true); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// workload fetches random pages, holding a few pins at a time. Exhaustion
// is expected when the pool is small and only releases a pin.
func workload(bp *buffer.BufferPool, f file.Filer, ids []util.PageID, ops int, seed int64) error {
	if len(ids) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	var held []*buffer.PageHandle

	for i := 0; i < ops; i++ {
		if len(held) > 0 && (len(held) >= 8 || rng.Intn(2) == 0) {
			j := rng.Intn(len(held))
			if err := held[j].Release(rng.Intn(4) == 0); err != nil {
				return err
			}
			held = append(held[:j], held[j+1:]...)
			continue
		}

		h, err := bp.FetchPage(f, ids[rng.Intn(len(ids))])
		if errors.Is(err, util.ErrPoolExhausted) {
			continue
		}
		if err != nil {
			return err
		}
		held = append(held, h)
	}

	for _, h := range held {
		if err := h.Release(false); err != nil {
			return err
		}
	}
	return nil
}

// setupMetrics returns a noop meter unless metrics are enabled, in which
// case pool counters are exported on cfg.Addr under /metrics.
func setupMetrics(cfg util.MetricsConfig, log *zap.Logger) (metric.Meter, func(), error) {
	if !cfg.Enabled {
		return noop.NewMeterProvider().Meter(""), func() {}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", cfg.Addr))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
		if err := provider.Shutdown(ctx); err != nil {
			log.Warn("meter provider shutdown", zap.Error(err))
		}
	}
	return provider.Meter("clockpool"), shutdown, nil
}

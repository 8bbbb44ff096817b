package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"matchbook/api"
	"matchbook/config"
	"matchbook/infra/codec"
	"matchbook/infra/kafka"
	"matchbook/infra/logging"
	"matchbook/infra/outbox"
	"matchbook/infra/sequence"
	"matchbook/jobs/broadcaster"
	"matchbook/service"
)

func main() {
	envPath := flag.String("env", "", "path to a .env file")
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)

	// ---------------- Logger ----------------

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	seqGen := sequence.New(0)

	// ---------------- Outbox ----------------

	var (
		ob   *outbox.Outbox
		sink service.TradeSink
	)
	if cfg.Outbox.Enabled {
		ser, err := codec.ByName(cfg.Broadcast.Codec)
		if err != nil {
			return err
		}
		ob, err = outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			return err
		}
		defer ob.Close()

		// trade sequence numbers continue where the last run stopped
		last, err := ob.LastSeq()
		if err != nil {
			return err
		}
		seqGen.AdvanceTo(last)
		sink = outbox.NewSink(ob, ser)
		logger.Info("outbox opened",
			zap.String("dir", cfg.Outbox.Dir),
			zap.String("codec", ser.Name()),
			zap.Uint64("last_seq", last),
		)
	}

	// ---------------- Engine ----------------

	hub := api.NewHub(cfg.CORSOrigins, logger.Named("ws"))
	sinks := service.TradeSinks{hub}
	if sink != nil {
		sinks = append(sinks, sink)
	}
	engine := service.NewMatchingEngine(logger.Named("engine"), seqGen, sinks)
	for _, pair := range cfg.Markets {
		if err := engine.AddNewMarket(pair); err != nil {
			return err
		}
	}

	// ---------------- Broadcaster ----------------

	if ob != nil && len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.New(cfg.Kafka)
		if err != nil {
			return err
		}
		bc := broadcaster.New(ob, pub, cfg.Broadcast.Interval, logger.Named("broadcaster"))
		defer bc.Close()

		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			bc.Run(runCtx)
		}()
		// outbox must outlive the drain loop
		defer func() {
			cancelRun()
			<-done
		}()
	} else {
		logger.Info("broadcaster disabled", zap.Bool("outbox", ob != nil), zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	if cfg.SeedDemo {
		seedDemo(engine, logger)
	}

	// ---------------- HTTP ----------------

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           api.NewServer(engine, hub, cfg.CORSOrigins, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("matchbook running",
		zap.Strings("markets", engine.Markets()),
		zap.String("http_addr", cfg.MetricsAddr),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

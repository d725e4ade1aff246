package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KCuppens/bugwatch/internal/alert"
	"github.com/KCuppens/bugwatch/internal/cleanup"
	"github.com/KCuppens/bugwatch/internal/config"
	"github.com/KCuppens/bugwatch/internal/consumer"
	"github.com/KCuppens/bugwatch/internal/db"
	"github.com/KCuppens/bugwatch/internal/enrich"
	"github.com/KCuppens/bugwatch/internal/httpserver"
	"github.com/KCuppens/bugwatch/internal/ingest"
	"github.com/KCuppens/bugwatch/internal/metrics"
	"github.com/KCuppens/bugwatch/internal/migrate"
	"github.com/KCuppens/bugwatch/internal/queue"
	"github.com/KCuppens/bugwatch/internal/ratelimit"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("config: %s", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.NewGorm(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := migrate.AutoMigrate(migCtx, gdb); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	publisher, err := queue.NewNSQPublisher(cfg.NSQDAddress)
	if err != nil {
		log.Fatalf("nsq publisher: %v", err)
	}
	defer publisher.Stop()

	var recorder *metrics.RedisRecorder
	if cfg.EnableMetrics {
		rdb, err := metrics.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		defer rdb.Close()
		recorder = metrics.NewRedisRecorder(rdb)
	}

	geoip, err := enrich.NewGeoIP(cfg.GeoIPCityMMDB)
	if err != nil {
		log.Fatalf("geoip: %v", err)
	}
	if geoip != nil {
		defer geoip.Close()
	}

	limiter := ratelimit.NewLimiter()
	go limiter.RunCleanup(ctx, cfg.BucketSweep, cfg.BucketMaxIdle)

	go cleanup.NewWorker(gdb, cfg.RetentionSweep).Run(ctx)

	srv := httpserver.New(cfg, gdb, limiter, publisher, geoResolver(geoip), recorder)

	var alertConsumer *consumer.NSQConsumer
	if cfg.RunConsumers {
		dispatcher := alert.NewDispatcher(gdb)
		dispatcher.HTTPClient = &http.Client{Timeout: cfg.TransportTimeout}
		dispatcher.SMTPHost = cfg.SMTPHost
		dispatcher.SMTPPort = cfg.SMTPPort
		dispatcher.SMTPUsername = cfg.SMTPUsername
		dispatcher.SMTPPassword = cfg.SMTPPassword
		dispatcher.SMTPFrom = cfg.SMTPFrom

		evaluator := alert.NewEvaluator(gdb, dispatcher, cfg.AppURL)
		alertConsumer, err = consumer.NewAlertTriggerConsumer(ctx, cfg, evaluator)
		if err != nil {
			log.Fatalf("alert consumer: %v", err)
		}
		log.Printf("alert consumer listening on %s/%s", cfg.NSQAlertTopic, cfg.NSQAlertChannel)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("http listening on %s", cfg.HTTPAddr)

	select {
	case <-ctx.Done():
		log.Printf("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if alertConsumer != nil {
		alertConsumer.Stop()
	}
	log.Printf("bye")
}

// geoResolver keeps a nil *enrich.GeoIP from becoming a non-nil interface
// value in the ingest pipeline.
func geoResolver(g *enrich.GeoIP) ingest.GeoResolver {
	if g == nil {
		return nil
	}
	return g
}

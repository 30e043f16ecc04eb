// Package main is the entry point for the vitals service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/auth"
	"github.com/sebasr/vitals-service/internal/config"
	"github.com/sebasr/vitals-service/internal/database"
	"github.com/sebasr/vitals-service/internal/device"
	"github.com/sebasr/vitals-service/internal/handlers"
	"github.com/sebasr/vitals-service/internal/logger"
	"github.com/sebasr/vitals-service/internal/metrics"
	"github.com/sebasr/vitals-service/internal/notify"
	"github.com/sebasr/vitals-service/internal/pagination"
	"github.com/sebasr/vitals-service/internal/poller"
	"github.com/sebasr/vitals-service/internal/prediction"
	"github.com/sebasr/vitals-service/internal/repository"
	"github.com/sebasr/vitals-service/internal/server"
	"github.com/sebasr/vitals-service/internal/session"
)

const serviceName = "vitals-service"

func main() {
	issueToken := flag.String("issue-token", "", "print a development access token for the given patient ID and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	if *issueToken != "" {
		if err := printToken(jwtService, *issueToken, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, jwtService, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func printToken(jwtService *auth.JWTService, rawID string, ttl time.Duration) error {
	patientID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid patient ID %q: %w", rawID, err)
	}
	token, err := jwtService.GenerateAccessToken(patientID, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func run(cfg *config.Config, jwtService *auth.JWTService, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]handlers.HealthChecker{}

	var (
		store    repository.VitalsRepository
		patients repository.PatientRepository
	)

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn("error closing database", zap.Error(err))
			}
		}()
		log.Info("connected to database")

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db.DB); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		store = repository.NewPostgresVitalsRepository(db.DB)
		patients = repository.NewPostgresPatientRepository(db.DB)
		healthChecks["database"] = db
	default:
		log.Warn("using in-memory store, readings are lost on restart")
		store = repository.NewMemoryVitalsRepository()
		patients = repository.NewMemoryPatientRepository()
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		patients = repository.NewCachedPatientRepository(patients, rdb, cfg.Redis.ProfileTTL, log)
		healthChecks["redis"] = handlers.HealthCheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		log.Info("profile cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := notify.NewMQTTPublisher(cfg.MQTT, log)
		if err != nil {
			// Notifications are best-effort; acquisition continues without them
			log.Warn("mqtt publisher unavailable", zap.Error(err))
		} else {
			publisher = p
			log.Info("publishing readings over mqtt", zap.String("broker", cfg.MQTT.Broker))
		}
	}
	defer publisher.Close()

	m := metrics.NewManager()

	sessions := session.NewTracker(patients)
	if cfg.Poller.PatientID != "" {
		patientID, err := uuid.Parse(cfg.Poller.PatientID)
		if err != nil {
			return fmt.Errorf("invalid poller patient ID: %w", err)
		}
		sessions.SetActive(patientID)
	}

	acquisition := poller.New(
		device.NewReader(cfg.Device.URL, cfg.Device.Timeout),
		prediction.NewClient(cfg.Prediction.BaseURL, cfg.Prediction.Timeout),
		store,
		sessions,
		log.Named("poller"),
		poller.WithPublisher(publisher),
		poller.WithRecorder(m),
	)

	pollerDone := make(chan struct{})
	if cfg.Poller.Enabled {
		go func() {
			defer close(pollerDone)
			acquisition.Run(ctx, cfg.Poller.Interval)
		}()
		log.Info("acquisition loop started", zap.Duration("interval", cfg.Poller.Interval))
	} else {
		close(pollerDone)
	}

	router := server.New(&server.Dependencies{
		Config:       cfg,
		Logger:       log.Named("http"),
		Metrics:      m,
		JWT:          jwtService,
		Pages:        pagination.NewRegistry(store, cfg.Pagination.PageSize, log.Named("pagination"), pagination.WithRecorder(m)),
		Store:        store,
		Uploader:     acquisition,
		Sessions:     sessions,
		HealthChecks: healthChecks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-pollerDone
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown incomplete", zap.Error(err))
	}
	<-pollerDone

	return nil
}

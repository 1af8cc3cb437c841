package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devmeet/internal/admission"
	"devmeet/internal/auth"
	"devmeet/internal/booking"
	"devmeet/internal/config"
	"devmeet/internal/db"
	httpx "devmeet/internal/http"
	"devmeet/internal/jobs"
	"devmeet/internal/notify"
	"devmeet/internal/presence"
	"devmeet/internal/realtime"
)

func main() {
	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log := base.Sugar()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("config load failed", "error", err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("database connect failed", "error", err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatalw("migration failed", "error", err)
	}

	hub := realtime.NewHub(log)

	var store presence.Store
	if cfg.RedisURL != "" {
		rs, err := presence.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalw("redis connect failed", "error", err)
		}
		defer func() { _ = rs.Close() }()
		store = rs
	} else {
		log.Warnw("REDIS_URL not set, using in-process presence store")
		store = presence.NewMemoryStore()
	}
	tracker := presence.NewTracker(store, hub, cfg.HostActiveTTL, log)

	jobsRepo := &jobs.Repo{DB: gdb}
	bookings := &booking.Service{
		DB:           gdb,
		Jobs:         jobsRepo,
		Log:          log,
		Loc:          cfg.Location,
		ReminderLead: cfg.ReminderLead,
	}
	verifier := admission.NewVerifier(gdb, tracker, cfg.Location, log)

	worker := jobs.NewWorker(jobsRepo, log)
	worker.PollInterval = cfg.WorkerPollInterval
	worker.StaleAfter = cfg.JobStaleAfter
	dispatcher := &notify.Dispatcher{DB: gdb, Pub: hub, Log: log}
	worker.Register(booking.JobTypeNotifyUser, dispatcher.HandleNotifyUser)

	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:            gdb,
		JWT:           auth.NewJWT(cfg.JWTSecret),
		Bookings:      bookings,
		Notifications: &notify.Repo{DB: gdb},
		Verifier:      verifier,
		Tracker:       tracker,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Infow("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}

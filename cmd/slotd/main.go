package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/timeslot-scheduler/internal/application"
	"github.com/example/timeslot-scheduler/internal/config"
	"github.com/example/timeslot-scheduler/internal/export"
	"github.com/example/timeslot-scheduler/internal/grid"
	httptransport "github.com/example/timeslot-scheduler/internal/http"
	"github.com/example/timeslot-scheduler/internal/notify"
	"github.com/example/timeslot-scheduler/internal/persistence"
	"github.com/example/timeslot-scheduler/internal/persistence/sqlite"
	"github.com/example/timeslot-scheduler/internal/recurrence"
)

func main() {
	seedGrid := flag.String("seed-grid", "", "path to a weekly slot template applied at startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	slotStore := sqlite.NewSlotRepository(pool, location)
	sessionRepo := sqlite.NewSessionRepository(pool, location)

	var notifier application.Notifier
	if cfg.SMTPAddr != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			To:       cfg.SMTPTo,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	// The term end is the last bookable civil day, interpreted in the
	// configured timezone at end of business.
	termEnd := time.Date(cfg.TermEnd.Year(), cfg.TermEnd.Month(), cfg.TermEnd.Day(), 0, 0, 0, 0, location)

	engine := recurrence.NewEngine(location)
	bookingService := application.NewBookingService(slotStore, engine, notifier, idGenerator, now, termEnd, logger)
	slotService := application.NewSlotService(slotStore, idGenerator, now, logger)
	authService := application.NewAuthService(sessionRepo, cfg.AdminEmail, cfg.AdminPasswordHash, tokenGenerator, now, cfg.SessionTTL, logger)
	exporter := export.NewCalendarExporter(slotService, "Appointments")

	if *seedGrid != "" {
		if err := applyGridTemplate(ctx, *seedGrid, slotService, location, termEnd, now(), logger); err != nil {
			logger.Error("failed to seed slot grid", "error", err)
			os.Exit(1)
		}
	}

	purger := cron.New()
	if _, err := purger.AddFunc(cfg.PurgeCron, func() {
		if err := authService.PurgeExpiredSessions(context.Background()); err != nil {
			logger.Error("failed to purge expired sessions", "error", err)
		}
	}); err != nil {
		logger.Error("invalid session purge schedule", "schedule", cfg.PurgeCron, "error", err)
		os.Exit(1)
	}
	purger.Start()
	defer purger.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, location, logger),
		Slots:      httptransport.NewSlotHandler(slotService, location, logger),
		Export:     httptransport.NewExportHandler(exporter, logger),
		Sessions:   authService,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("slot booking API listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// applyGridTemplate loads a weekly availability template and reconciles the
// stored slot set against it.
func applyGridTemplate(ctx context.Context, path string, slots *application.SlotService, loc *time.Location, termEnd, from time.Time, logger *slog.Logger) error {
	template, err := grid.Load(path)
	if err != nil {
		return err
	}

	descriptors, err := template.Materialize(from, termEnd, loc)
	if err != nil {
		return err
	}

	// Seeding replaces the whole grid. Refuse when bookings already exist so
	// a repeat run cannot silently drop them; those grids get edited through
	// the admin reconcile endpoint instead.
	booked, err := slots.ListSlots(ctx, persistence.SlotFilter{BookedOnly: true})
	if err != nil {
		return err
	}
	if len(booked) > 0 {
		return fmt.Errorf("refusing to seed slot grid: %d booked slot(s) would be deleted, use the admin API to reconcile instead", len(booked))
	}

	result, err := slots.Reconcile(ctx, application.Principal{IsAdmin: true}, descriptors)
	if err != nil {
		return err
	}

	logger.Info("slot grid seeded", "template", path, "slots", result.Processed)
	return nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"study-planner/internal/cli"
	"study-planner/internal/config"
	"study-planner/internal/repository"
	"study-planner/internal/service"
	"study-planner/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewPlanStore(db, log)
	planSvc := service.NewPlanService(store)

	if cfg.SeedDemoData {
		seeded, err := service.NewSeedService(store).SeedIfEmpty(ctx, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
		if seeded {
			log.Info().Msg("seeded demo data")
		}
	}

	projector, err := view.NewProjector(planSvc, view.DefaultIdleGrace, log)
	if err != nil {
		log.Fatal().Err(err).Msg("projector")
	}
	defer projector.Close()

	if cfg.MaintenanceInterval > 0 {
		scheduler := service.NewSchedulerService(time.Local)
		if _, err := scheduler.ScheduleInterval(cfg.MaintenanceInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := store.Maintain(jobCtx); err != nil {
				log.Warn().Err(err).Msg("maintenance")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("schedule maintenance")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	rootCmd := cli.NewRootCmd(&cli.App{Projector: projector})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

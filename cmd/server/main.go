// Command server runs the real-estate booking API and its notification
// consumer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/database"
	"github.com/Omvpatil/RealEstate/internal/handler"
	"github.com/Omvpatil/RealEstate/internal/logging"
	"github.com/Omvpatil/RealEstate/internal/metrics"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/queue"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/router"
	"github.com/Omvpatil/RealEstate/internal/service"
)

const appName = "realestate"

func main() {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Real-estate booking and payment API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())
	if err := root.Execute(); err != nil {
		logging.Logger.WithError(err).Fatal("exit")
	}
}

func serveCmd() *cobra.Command {
	var noConsumer bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the notification consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), !noConsumer)
		},
	}
	cmd.Flags().BoolVar(&noConsumer, "no-consumer", false, "do not consume booking events")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logging.Init(appName, cfg.LogLevel)
			db, err := database.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			gdb, err := database.OpenGorm(db)
			if err != nil {
				return err
			}
			if err := model.AutoMigrate(gdb); err != nil {
				return err
			}
			logging.Logger.Info("schema up to date")
			return nil
		},
	}
}

func serve(parent context.Context, runConsumer bool) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()
	logging.Init(appName, cfg.LogLevel)
	log := logrus.NewEntry(logging.Logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	gdb, err := database.OpenGorm(db)
	if err != nil {
		return err
	}
	if err := model.AutoMigrate(gdb); err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	users := repository.NewUserRepo(db)
	store := repository.NewGormRecordRepository(gdb)
	gate := access.NewGate(cfg.Auth, users)
	publisher := queue.NewPublisher(cfg.AMQPURL, log)

	opts := service.Options{LockTimeout: cfg.LockTimeout, Overpayment: cfg.Overpayment}
	bookings := service.NewBookingService(db, opts, publisher, m, log)
	projects := service.NewProjectService(db, opts, m, log)
	records := service.NewRecordService(db, store, log)

	e := router.New(router.Deps{
		Auth:         handler.NewAuthHandler(gate, users, cfg.Auth.BcryptCost, log),
		Projects:     handler.NewProjectHandler(projects, log),
		Bookings:     handler.NewBookingHandler(bookings, log),
		Records:      handler.NewRecordHandler(records, log),
		Gate:         gate,
		DB:           db,
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		CORSOrigins:  cfg.CORSOrigins,
		Metrics:      m.Handler(),
		MetricsRoute: cfg.MetricsRoute,
		Log:          log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if runConsumer {
		consumer := queue.NewConsumer(cfg.AMQPURL, store, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// engine arranca el motor de reposición: scheduler de redistribución y compra automática
// más la API HTTP de consulta y operaciones.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/application/replenishment"
	"github.com/jhoicas/stock-replenishment/internal/application/threshold"
	"github.com/jhoicas/stock-replenishment/internal/application/transfer"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/kafka"
	httpRouter "github.com/jhoicas/stock-replenishment/internal/interfaces/http"
	"github.com/jhoicas/stock-replenishment/pkg/config"
	"github.com/jhoicas/stock-replenishment/pkg/jwt"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/jhoicas/stock-replenishment/pkg/logger"
	"github.com/jhoicas/stock-replenishment/pkg/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando motor de reposición")

	tokens, err := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET es obligatorio para exponer la API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: version,
		Endpoint:       cfg.Otel.Endpoint,
		AuthHeader:     cfg.Otel.AuthHeader,
		Insecure:       cfg.Otel.Insecure,
	})
	if err != nil {
		log.Warn().Err(err).Msg("exportador de trazas desactivado")
	}

	st, err := openStorage(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer st.close()

	var events ports.EventPublisher = ports.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), log.Zerolog())
		defer func() {
			if err := pub.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		events = pub
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos a Kafka")
	}

	locks := keylock.New()
	ledgerSvc := ledger.NewService(st.txRunner, st.ledger, st.locations, st.stockables, log.Component("ledger"))
	transferSvc := transfer.NewService(st.txRunner, st.transfers, st.locations, st.stockables,
		ledgerSvc, locks, events, log.Component("transfer")).WithLockTimeout(cfg.Scheduler.LockTimeout)
	orderSvc := order.NewService(st.txRunner, st.orders, st.locations, st.stockables,
		ledgerSvc, locks, events, log.Component("order")).WithLockTimeout(cfg.Scheduler.LockTimeout)
	thresholdSvc := threshold.NewService(st.thresholds, st.locations, st.stockables, log.Component("threshold"))

	board := replenishment.NewResidualBoard()
	snapshots := replenishment.NewSnapshotter(st.locations, st.thresholds, st.ledger, st.transfers, st.orders)
	scheduler := replenishment.NewScheduler(st.companies, log.Component("scheduler"))
	scheduler.Register(
		replenishment.NewRedistributionJob(snapshots, transferSvc, board, locks, replenishment.RedistributionOptions{
			Plan: inventory.PlanOptions{
				TieBreak:   inventory.ParseTieBreakPolicy(cfg.Scheduler.TieBreak),
				AllowSplit: cfg.Scheduler.AllowSplit,
			},
			LockTimeout: cfg.Scheduler.LockTimeout,
		}, log.Component("redistribution")),
		replenishment.JobConfig(cfg.Scheduler.Redistribution),
	)
	scheduler.Register(
		replenishment.NewAutoOrderJob(snapshots, st.purchaseOptions, orderSvc, board, locks,
			cfg.Scheduler.LockTimeout, log.Component("auto-order")),
		replenishment.JobConfig(cfg.Scheduler.AutoOrder),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute, // RunNow recorre todas las empresas
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "jobs": scheduler.Jobs()})
	})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:     ledgerSvc,
		Thresholds: thresholdSvc,
		Transfers:  transferSvc,
		Orders:     orderSvc,
		Locations:  st.locations,
		Jobs:       scheduler,
		Tokens:     tokens,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	} else {
		log.Warn().Msg("scheduler desactivado: solo API")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("motor finalizado con error")
	}

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tctx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}
	log.Info().Msg("motor detenido")
}

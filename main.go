package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"tux-order-services/internal/cartsync"
	"tux-order-services/internal/checkout"
	"tux-order-services/internal/config"
	"tux-order-services/internal/db"
	httpapi "tux-order-services/internal/http"
	"tux-order-services/internal/http/handlers"
	"tux-order-services/internal/logger"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/numbering"
	"tux-order-services/internal/orders"
	"tux-order-services/internal/queue"
	"tux-order-services/internal/storage"
	"tux-order-services/internal/submission"
	"tux-order-services/internal/users"
	"tux-order-services/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	queueClient := connectQueue(cfg, log)
	if queueClient != nil {
		defer queueClient.Close()
	}

	// Cart sync: one bus shared by every server-side surface, bridged to the
	// broker when one is configured.
	catalog := menu.Default()
	zones := menu.DefaultZones()
	bus := queue.NewCartSyncBus(queueClient, log)
	go func() {
		if err := bus.Run(ctx); stopped(err) {
			log.Error("cart sync bus stopped", zap.Error(err))
		}
	}()

	hub := ws.NewHub()
	durable := cartsync.NewPostgresStore(pool)
	transfer := cartsync.NewMemoryStore(cfg.CartTransferTTL)
	registry := cartsync.NewRegistry(func(cartID string) *cartsync.Surface {
		return cartsync.NewSurface(cartsync.SurfaceConfig{
			CartID:          cartID,
			Source:          "api",
			Catalog:         catalog,
			Zones:           zones,
			Durable:         durable,
			Transfer:        transfer,
			Buses:           []cartsync.Bus{bus},
			Views:           []cartsync.Broadcaster{hub},
			PersistDelay:    cfg.CartPersistDelay,
			PersistMaxDelay: cfg.CartPersistMaxDelay,
			Logger:          log,
		})
	}, cfg.CartIdleTimeout, log)
	go registry.Run(ctx, time.Minute)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				transfer.Sweep()
			}
		}
	}()

	// Orders: the profile write is fatal, everything after it best effort.
	orderStore := orders.NewStore(pool)
	var emailer queue.Emailer = queue.NewLogEmailer(log)
	if queueClient != nil {
		emailer = queue.NewQueueEmailer(queueClient)
	}
	checkoutService := submission.NewService(orderStore, submission.Options{
		Rules:        checkout.Rules{Zones: zones, CountryCode: cfg.PhoneCountryCode},
		RestaurantID: cfg.RestaurantID,
		TaskTimeout:  cfg.OrderMirrorTimeout,
		Logger:       log,
	})
	registry.OnEvict(checkoutService.Forget)

	if webhook := orders.NewWebhook(cfg.OrderWebhookURL, cfg.OrderMirrorTimeout); webhook.Enabled() {
		checkoutService.Use(webhook.SideEffect())
	}
	if cfg.ObjectStoreEnabled() {
		objectStore, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Warn("order archive disabled", zap.Error(err))
		} else {
			checkoutService.Use(storage.ArchiveSideEffect(objectStore, log))
		}
	}
	checkoutService.Use(queue.ConfirmationSideEffect(emailer))
	if queueClient != nil {
		checkoutService.Use(queue.NewPOSCreatedPublisher(queueClient).SideEffect())
	}

	if queueClient != nil {
		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("order workers enabled", zap.String("mode", "daemon"))
			worker := numbering.New(pool, log)
			go func() {
				if err := worker.Run(ctx, queueClient); stopped(err) {
					log.Error("numbering consumer stopped", zap.Error(err))
				}
			}()
			go func() {
				err := queueClient.ConsumeWithRetry(ctx, queue.EmailJobsQueue, queue.LogMailerHandler(log), 5, 5*time.Second)
				if stopped(err) {
					log.Error("mailer consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Info("order workers disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	}

	userService := users.NewService(users.NewPostgresStore(pool), users.ServiceConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  time.Duration(cfg.JWTExpirySeconds) * time.Second,
		ResetURL:  cfg.PasswordResetURL,
		ResetTTL:  cfg.PasswordResetTTL,
		Emailer:   emailer,
		Logger:    log,
	})

	h := &handlers.Handler{
		Logger:   log,
		Config:   cfg,
		Catalog:  catalog,
		Zones:    zones,
		Carts:    registry,
		Transfer: transfer,
		Orders:   orderStore,
		Checkout: checkoutService,
		Users:    userService,
	}
	wsServer := ws.New(hub, registry, log, cfg.CartTokenSecret, cfg.WSHeartbeatInterval)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(log, cfg, httpapi.Deps{Handler: h, WSServer: wsServer}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("order api ready", zap.String("base", "/api"))
		log.Info("cart ws ready", zap.String("base", "/ws"))
		log.Info("order service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	registry.Shutdown(ctxShutdown)
	cancelWorkers()
}

// connectQueue dials RabbitMQ and declares the topology. Outside production
// any failure degrades to running without a broker.
func connectQueue(cfg config.Config, log *zap.Logger) *queue.Client {
	if cfg.RabbitMQURL == "" {
		log.Info("order workers disabled (RABBITMQ_URL is empty)")
		return nil
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		if cfg.Env == "production" {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		log.Warn("rabbitmq connection failed; continuing without worker", zap.Error(err))
		return nil
	}

	steps := []struct {
		name string
		run  func(*queue.Client) error
	}{
		{"order_events", queue.EnsureOrderEventsTopology},
		{"email_jobs", queue.EnsureEmailJobsTopology},
		{"cart_sync", queue.EnsureCartSyncTopology},
	}
	for _, step := range steps {
		if err := step.run(qc); err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq topology failed", zap.String("topology", step.name), zap.Error(err))
			}
			log.Warn("rabbitmq topology failed; continuing without worker", zap.String("topology", step.name), zap.Error(err))
			_ = qc.Close()
			return nil
		}
	}
	log.Info("rabbitmq enabled", zap.String("exchange", queue.EventsExchange))
	return qc
}

// stopped reports consumer exits other than a normal shutdown.
func stopped(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	listingsapp "staybook/internal/app/handlers/listings"
	reservationsapp "staybook/internal/app/handlers/reservations"
	rewardsapp "staybook/internal/app/handlers/rewards"
	walletapp "staybook/internal/app/handlers/wallet"
	"staybook/internal/app/jobs"
	"staybook/internal/app/middleware"
	"staybook/internal/app/notify"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/rewards"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongostore "staybook/internal/infra/db/mongo"
	"staybook/internal/infra/email"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/inbox"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/payments"
	"staybook/internal/infra/storage/memory"
	redisstore "staybook/internal/infra/storage/redis"
	"staybook/internal/infra/storage/s3"
)

const (
	inboxRetention  = 7 * 24 * time.Hour
	notifyConsumer  = "notify"
	maxOutboxTries  = 10
	redisKeyPrefix  = "staybook"
	outboxSourceURI = "app://staybook"
)

type runner struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers ginserver.Handlers
	metrics  *obs.Metrics
	commands commands.Bus
	queries  queries.Bus
	factory  uow.UoWFactory
	ready    func(ctx context.Context) error
	runners  []runner
	closers  []func(ctx context.Context) error
	// relay is set in memory mode only.
	relay *memory.Relay
}

// storage is what the chosen backend contributes to the wiring.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	rewards     rewards.Store
	mongo       *mongostore.Client
	relay       *memory.Relay
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{metrics: obs.NewMetrics()}
	clock := policies.SystemClock{}
	policy := reservation.DefaultOccupancy
	logger.Info("occupancy policy", "statuses", policy.Statuses())

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient = redisstore.NewClient(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		app.closers = append(app.closers, func(context.Context) error { return redisClient.Close() })
	}

	dispatcher := &notify.Dispatcher{
		Notifier: buildNotifier(cfg, logger),
		Metrics:  app.metrics,
		Logger:   logger.With("component", "notify"),
	}
	if cfg.S3Endpoint != "" {
		archive, err := s3.NewReceiptArchive(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			UseSSL:    cfg.S3UseSSL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		}, logger)
		if err != nil {
			return nil, err
		}
		dispatcher.Archive = archive
	}

	store, err := buildStorage(ctx, cfg, dispatcher, logger)
	if err != nil {
		app.close(ctx, logger)
		return nil, err
	}
	if store.mongo != nil {
		client := store.mongo
		app.closers = append(app.closers, client.Close)
	}
	app.factory = store.factory
	app.relay = store.relay

	rewardsStore := store.rewards
	if redisClient != nil {
		rewardsStore = redisstore.NewRewardsStore(redisClient, redisKeyPrefix)
	}
	dispatcher.Rewards = rewardsStore

	var holds reservation.HoldStore
	if redisClient != nil {
		holds = redisstore.NewHoldStore(redisClient, redisKeyPrefix)
	} else {
		memHolds := memory.NewHoldStore()
		holds = memHolds
		app.runners = append(app.runners, runner{name: "hold-sweep", run: jobs.Periodic{
			Name:     "hold-sweep",
			Interval: cfg.HoldSweepInterval,
			Task:     jobs.SweepHolds(memHolds, clock.Now),
			Logger:   logger,
		}.Run})
	}

	var verifier policies.CaptureVerifier
	if cfg.PaymentsURL != "" {
		verifier = &payments.Client{BaseURL: cfg.PaymentsURL, Token: cfg.PaymentsToken, Logger: logger}
	}

	handlerLogger := logger.With("component", "reservations")
	raw := commands.NewInMemoryBus()
	commands.Register[reservationsapp.PlaceHoldCommand, dto.Hold](raw, &reservationsapp.PlaceHoldHandler{
		Holds:  holds,
		TTL:    cfg.HoldTTL,
		Policy: policy,
		Clock:  clock,
		Logger: handlerLogger,
	})
	commands.Register[reservationsapp.ConfirmPaymentCommand, dto.Reservation](raw, &reservationsapp.ConfirmPaymentHandler{
		Verifier: verifier,
		Holds:    holds,
		Outbox:   store.outbox,
		Policy:   policy,
		Clock:    clock,
		Metrics:  app.metrics,
		Logger:   handlerLogger,
	})
	commands.Register[reservationsapp.RequestCancellationCommand, dto.Reservation](raw, &reservationsapp.RequestCancellationHandler{
		Outbox:  store.outbox,
		Clock:   clock,
		Metrics: app.metrics,
		Logger:  handlerLogger,
	})
	commands.Register[reservationsapp.ResolveCancellationCommand, dto.Reservation](raw, &reservationsapp.ResolveCancellationHandler{
		Outbox:  store.outbox,
		Clock:   clock,
		Metrics: app.metrics,
		Logger:  handlerLogger,
	})
	commands.Register[reservationsapp.ReconcileExpiredCommand, dto.ReconcileResult](raw, &reservationsapp.ReconcileExpiredHandler{
		Outbox:  store.outbox,
		Clock:   clock,
		Metrics: app.metrics,
		Logger:  handlerLogger,
	})
	walletLogger := logger.With("component", "wallet")
	commands.Register[walletapp.RequestCashoutCommand, dto.Cashout](raw, &walletapp.RequestCashoutHandler{
		Currency: cfg.Currency,
		Clock:    clock,
		Logger:   walletLogger,
	})
	commands.Register[walletapp.ResolveCashoutCommand, dto.Cashout](raw, &walletapp.ResolveCashoutHandler{
		Clock:  clock,
		Logger: walletLogger,
	})
	listingsLogger := logger.With("component", "listings")
	commands.Register[listingsapp.SetBlockedDatesCommand, dto.Listing](raw, &listingsapp.SetBlockedDatesHandler{
		Outbox: store.outbox,
		Clock:  clock,
		Logger: listingsLogger,
	})
	commands.Register[listingsapp.SetStatusCommand, dto.Listing](raw, &listingsapp.SetStatusHandler{
		Outbox: store.outbox,
		Clock:  clock,
		Logger: listingsLogger,
	})

	app.commands = middleware.ChainCommands(raw,
		middleware.Logging(logger, app.metrics),
		middleware.Authorization(auth.Authorizer{}),
		middleware.Idempotency(store.idempotency, nil),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Transaction(store.factory, nil),
		middleware.OutboxFlush(store.outbox),
	)

	rawQueries := queries.NewInMemoryBus()
	queries.Register[availabilityapp.GetCalendarQuery, dto.Calendar](rawQueries, &availabilityapp.GetCalendarHandler{
		UoWFactory:  store.factory,
		Holds:       holds,
		Policy:      policy,
		HorizonDays: cfg.HorizonDays,
		Clock:       clock,
		Logger:      logger.With("component", "availability"),
	})
	queries.Register[reservationsapp.GetQuoteQuery, dto.Quote](rawQueries, &reservationsapp.GetQuoteHandler{
		UoWFactory: store.factory,
		Holds:      holds,
		Policy:     policy,
		Clock:      clock,
		Logger:     handlerLogger,
	})
	queries.Register[reservationsapp.ListGuestReservationsQuery, dto.ReservationCollection](rawQueries, &reservationsapp.ListGuestReservationsHandler{UoWFactory: store.factory})
	queries.Register[reservationsapp.ListHostReservationsQuery, dto.ReservationCollection](rawQueries, &reservationsapp.ListHostReservationsHandler{UoWFactory: store.factory})
	queries.Register[walletapp.GetWalletQuery, dto.Wallet](rawQueries, &walletapp.GetWalletHandler{UoWFactory: store.factory, Currency: cfg.Currency})
	queries.Register[rewardsapp.GetStandingQuery, dto.Standing](rawQueries, &rewardsapp.GetStandingHandler{Store: rewardsStore})

	app.queries = middleware.ChainQueries(rawQueries,
		middleware.QueryLogging(logger, app.metrics),
		middleware.QueryAuthorization(auth.Authorizer{}),
		middleware.QueryValidation(middleware.SelfValidator{}),
	)

	app.runners = append(app.runners, runner{name: "reconcile-expired", run: jobs.Periodic{
		Name:     "reconcile-expired",
		Interval: cfg.ReconcileInterval,
		Task:     jobs.ReconcileExpired(app.commands, logger),
		Logger:   logger,
	}.Run})

	if err := app.wireEvents(cfg, store, dispatcher, logger); err != nil {
		app.close(ctx, logger)
		return nil, err
	}

	app.ready = func(ctx context.Context) error {
		if store.mongo != nil {
			if err := store.mongo.Ping(ctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisstore.Ping(ctx, redisClient)
		}
		return nil
	}

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Reservation:  ginserver.ReservationHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Host:         ginserver.HostHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Admin:        ginserver.AdminHandler{Commands: app.commands, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
			Logger: logger,
		}.Handle,
		RateLimit: ginserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware(),
		Metrics:   app.metrics.Handler(),
	}
	return app, nil
}

func buildStorage(ctx context.Context, cfg config.Config, dispatcher *notify.Dispatcher, logger *slog.Logger) (storage, error) {
	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
			_ = client.Close(ctx)
			return storage{}, fmt.Errorf("ensure indexes: %w", err)
		}
		return storage{
			factory:     mongostore.Factory{DB: client.DB},
			outbox:      infraoutbox.NewStore(client.DB),
			idempotency: mongostore.NewIdempotencyStore(client.DB),
			rewards:     mongostore.NewRewardsStore(client.DB),
			mongo:       client,
		}, nil
	default:
		relay := memory.NewRelay(dispatcher, logger.With("component", "relay"))
		return storage{
			factory:     memory.Factory{Store: memory.NewStore(), Relay: relay},
			outbox:      memory.NewOutbox(relay),
			idempotency: memory.NewIdempotencyStore(),
			rewards:     memory.NewRewardsStore(),
			relay:       relay,
		}, nil
	}
}

// wireEvents connects committed records to the dispatcher. Memory mode
// relays in process. Mongo mode drains the outbox collection into Kafka and
// consumes it back, or hands records over locally when no broker is set.
func (a *application) wireEvents(cfg config.Config, store storage, dispatcher *notify.Dispatcher, logger *slog.Logger) error {
	if store.relay != nil {
		a.runners = append(a.runners, runner{name: "relay", run: store.relay.Run})
		return nil
	}
	if store.mongo == nil {
		return errors.New("staybook: no event transport for storage mode " + cfg.StorageMode)
	}
	worker := &infraoutbox.Worker{
		Store:       infraoutbox.NewStore(store.mongo.DB),
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      outboxSourceURI,
		Backoff:     cfg.RetryBackoff,
		MaxAttempts: maxOutboxTries,
		Metrics:     a.metrics,
		Logger:      logger.With("component", "outbox"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, delivering outbox records in process")
		worker.Producer = infraoutbox.LocalProducer{Handler: dispatcher, Logger: logger.With("component", "notify")}
		a.runners = append(a.runners, runner{name: "outbox", run: worker.Run})
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("staybook-outbox"))
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
	worker.Producer = producer
	a.runners = append(a.runners, runner{name: "outbox", run: worker.Run})

	handler := kafka.EventsHandler{
		Inbox:   inbox.NewStore(store.mongo.DB, notifyConsumer, inboxRetention),
		Handler: dispatcher,
		Logger:  logger.With("component", "consumer"),
	}
	if err := handler.Validate(); err != nil {
		return err
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	topics := []string{infraoutbox.TopicFor(cfg.KafkaTopicPrefix, reservation.EventConfirmed)}
	a.runners = append(a.runners, runner{name: "consumer", run: func(ctx context.Context) error {
		return consumer.Run(ctx, topics)
	}})
	return nil
}

func buildNotifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	if strings.TrimSpace(cfg.EmailBaseURL) == "" && len(cfg.Templates) == 0 {
		return email.LogNotifier{Logger: logger}
	}
	return &email.Client{
		BaseURL:   cfg.EmailBaseURL,
		Templates: cfg.Templates,
		Client:    &http.Client{},
		Timeout:   cfg.EmailTimeout,
		Logger:    logger,
	}
}

func (a *application) close(ctx context.Context, logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

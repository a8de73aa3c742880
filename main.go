package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"carrental/internal/cache"
	intconfig "carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/gateway"
	router "carrental/internal/http"
	"carrental/internal/http/handlers"
	"carrental/internal/lock"
	"carrental/internal/messaging"
	"carrental/internal/messaging/kafka"
	"carrental/internal/messaging/rabbitmq"
	"carrental/internal/repositories"
	"carrental/internal/scheduler"
	"carrental/internal/services"

	"github.com/gin-gonic/gin"
)

// feed is a running payment feed transport.
type feed interface {
	Run(ctx context.Context) error
	Close() error
}

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	sqlDB := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	if env.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			cancel()
			log.Fatalf("[DB] schema bootstrap failed: %v", err)
		}
		cancel()
	}

	rdb := intconfig.ConnectRedis(env)
	defer intconfig.CloseRedis()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	card := gateway.NewCardApprovalClient(gateway.CardApprovalConfig{
		BaseURL:       env.CardAPIURL,
		BasePath:      env.CardAPIBasePath,
		Timeout:       env.CardAPITimeout,
		FailureRate:   env.BreakerFailureRate,
		MinCalls:      env.BreakerMinCalls,
		Window:        env.BreakerWindow,
		OpenWait:      env.BreakerOpenWait,
		HalfOpenCalls: env.BreakerHalfOpenCalls,
		RetryAttempts: env.RetryAttempts,
		RetryWait:     env.RetryWait,
	})
	strategies, err := services.NewPaymentStrategies(card)
	if err != nil {
		log.Fatalf("[BOOT] %v", err)
	}

	bookingRepo := repositories.BookingRepository{DB: sqlDB}
	ledger := repositories.ProcessedEventRepository{DB: sqlDB}
	bookingCache := cache.NewBookingCache(rdb, env.CacheTTL)

	bookingSvc := services.BookingService{Store: bookingRepo, Strategies: strategies, Cache: bookingCache}
	sweeper := scheduler.Sweeper{
		Locker:    lock.NewRedisLocker(rdb),
		Canceller: services.CancellationService{Store: bookingRepo, Cache: bookingCache},
		Interval:  env.SweepInterval,
	}

	feeds, closeFeeds := startFeeds(bgCtx, env, bookingSvc, ledger)
	defer closeFeeds()

	var wg sync.WaitGroup
	for _, f := range feeds {
		wg.Add(1)
		go func(f feed) {
			defer wg.Done()
			if err := f.Run(bgCtx); err != nil {
				log.Printf("[FEED] stopped: %v", err)
			}
		}(f)
	}
	if env.SweepEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(bgCtx)
		}()
	}

	r := router.NewRouter(env, router.Deps{
		Bookings: handlers.BookingHandler{
			Bookings: bookingSvc,
			Docs:     services.DocsService{Bookings: bookingSvc},
		},
		Admin:  handlers.AdminHandler{Sweeper: sweeper, Ledger: ledger},
		System: handlers.SystemHandler{DB: intconfig.PingDB, Redis: intconfig.PingRedis, Breaker: card.State},
	})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("[HTTP] listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[HTTP] server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[HTTP] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[HTTP] shutdown failed: %v", err)
	}
	stopBackground()
	wg.Wait()

	log.Println("[HTTP] server stopped cleanly.")
}

// startFeeds connects the payment feed and its dead-letter drain on the
// configured broker. FEED_BROKER=none runs the HTTP surface only.
func startFeeds(ctx context.Context, env intconfig.Env, bookings services.BookingService, ledger repositories.ProcessedEventRepository) ([]feed, func()) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	pipeline := services.PaymentEventService{Ledger: ledger, Bookings: bookings}
	var drain services.DeadLetterService
	var consumer, drainConsumer feed

	switch env.FeedBroker {
	case "none", "":
		log.Println("[FEED] disabled")
		return nil, closeAll

	case "kafka":
		dlq, err := kafka.DialDeadLetterProducer(ctx, env.KafkaBrokers, env.PaymentDLQTopic)
		if err != nil {
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, dlq.Close)
		pipeline.DeadLetters = dlq

		c, err := kafka.NewConsumer(ctx, env.KafkaBrokers, env.KafkaGroupID, env.PaymentTopic, handlerFor(pipeline))
		if err != nil {
			closeAll()
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, c.Close)
		d, err := kafka.NewConsumer(ctx, env.KafkaBrokers, env.KafkaGroupID+"-dlq", env.PaymentDLQTopic, drain.Handle)
		if err != nil {
			closeAll()
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, d.Close)
		consumer, drainConsumer = c, d

	case "rabbitmq":
		dlq, err := rabbitmq.DialDeadLetterPublisher(ctx, env.RabbitURL, env.RabbitExchange, env.RabbitDLQQueue)
		if err != nil {
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, dlq.Close)
		pipeline.DeadLetters = dlq

		c, err := rabbitmq.NewConsumer(ctx, rabbitmq.Config{
			URL:      env.RabbitURL,
			Exchange: env.RabbitExchange,
			Queue:    env.RabbitQueue,
			Workers:  env.FeedWorkers,
		}, handlerFor(pipeline))
		if err != nil {
			closeAll()
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, c.Close)
		d, err := rabbitmq.NewConsumer(ctx, rabbitmq.Config{
			URL:      env.RabbitURL,
			Exchange: env.RabbitExchange,
			Queue:    env.RabbitDLQQueue,
			Workers:  1,
		}, drain.Handle)
		if err != nil {
			closeAll()
			log.Fatalf("[FEED] %v", err)
		}
		closers = append(closers, d.Close)
		consumer, drainConsumer = c, d

	default:
		log.Fatalf("[FEED] unknown FEED_BROKER %q", env.FeedBroker)
	}

	log.Printf("[FEED] %s payment feed ready", env.FeedBroker)
	return []feed{consumer, drainConsumer}, closeAll
}

func handlerFor(pipeline services.PaymentEventService) messaging.Handler {
	return func(ctx context.Context, body []byte) {
		pipeline.Handle(ctx, body)
	}
}

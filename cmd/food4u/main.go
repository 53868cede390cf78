package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nachitzaid/food4u/internal/auth"
	"github.com/nachitzaid/food4u/internal/cache"
	"github.com/nachitzaid/food4u/internal/cart"
	"github.com/nachitzaid/food4u/internal/config"
	h "github.com/nachitzaid/food4u/internal/http"
	"github.com/nachitzaid/food4u/internal/metrics"
	"github.com/nachitzaid/food4u/internal/poller"
	"github.com/nachitzaid/food4u/internal/publisher"
	"github.com/nachitzaid/food4u/internal/repository"
	"github.com/nachitzaid/food4u/internal/service"
	"github.com/nachitzaid/food4u/internal/storage"
	"github.com/nachitzaid/food4u/pkg/circuitbreaker"
	"github.com/nachitzaid/food4u/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: cfg.App.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "food4u stopped with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var gcpOpts []option.ClientOption
	if cfg.GCP.CredentialsFile != "" {
		gcpOpts = append(gcpOpts, option.WithCredentialsFile(cfg.GCP.CredentialsFile))
	}

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoOptions{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MinPoolSize: cfg.Mongo.MinPoolSize,
	})
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}
	log.Info(ctx, "connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	log.Info(ctx, "connected to Redis")

	sessions, closeSessions, err := sessionStore(ctx, cfg, mongoDB, redisClient, gcpOpts)
	if err != nil {
		return err
	}
	defer closeSessions()

	verifier, err := tokenVerifier(ctx, cfg, gcpOpts)
	if err != nil {
		return err
	}

	var images service.ImageStore
	if cfg.GCP.GCSBucket != "" {
		gcsClient, err := gcs.NewClient(ctx, gcpOpts...)
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}
		defer gcsClient.Close()
		store, err := storage.NewGCSImageStore(gcsClient, cfg.GCP.GCSBucket)
		if err != nil {
			return err
		}
		images = store
	} else {
		log.Warn(ctx, "no GCS bucket configured; menu image uploads are disabled", nil)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCart(registry)
	outboxMetrics := metrics.NewOutbox(registry)

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name: "cart-store",
		OnStateChange: func(name, from, to string) {
			log.Warn(log.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from,
				"to":      to,
			}), "circuit breaker state changed", nil)
		},
	})
	syncer := cart.NewSyncer(sessions, cart.SyncerOptions{
		QueueSize: cfg.Cart.SyncQueueSize,
		Timeout:   cfg.Cart.SyncTimeout,
		Breaker:   breaker,
		Logger:    log,
		Metrics:   cartMetrics,
	})
	defer syncer.Close()

	menuService := service.NewMenuService(
		repository.NewMongoMenuRepository(mongoDB),
		cache.NewRedisCache(redisClient, cfg.Redis.MenuCacheTTL),
		images,
		log,
	)
	cartService := service.NewCartService(syncer, menuService, service.CartServiceOptions{
		TTL:     cfg.Cart.TTL,
		Tick:    cfg.Cart.Tick,
		Logger:  log,
		Metrics: cartMetrics,
	})
	// stops every expiry timer before the syncer drains
	defer cartService.Close()

	orderRepo := repository.NewMongoOrderRepository(mongoDB)
	orderService := service.NewOrderService(orderRepo, cartService, log)

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	if cfg.Kafka.Enabled() {
		outbox := publisher.NewOutboxPoller(orderRepo, publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...), log, outboxMetrics)
		go outbox.Run(bgCtx)
		defer outbox.Close()

		consumer := poller.NewPoller(poller.NewKafkaReader(cfg.Kafka.Topic, kafkaGroupID(cfg), cfg.Kafka.Brokers...), cartService, log)
		go consumer.Run(bgCtx)
		defer consumer.Close()
		log.Info(ctx, "order events enabled")
	}

	handlerOpts := h.HandlerOptions{
		Timeout:       cfg.Server.RequestTimeout,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		MaxImageBytes: cfg.Server.MaxImageBytes,
		Logger:        log,
	}
	router := h.NewRouter(h.Handlers{
		Cart:   h.NewCartHandler(cartService, handlerOpts),
		Menu:   h.NewMenuHandler(menuService, handlerOpts),
		Orders: h.NewOrdersHandler(orderService, handlerOpts),
	}, h.RouterOptions{
		Logger:         log,
		Verifier:       verifier,
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "HTTP server listening on :"+cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info(ctx, "gRPC health server listening on :"+cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down")
	healthServer.Shutdown()
	cancelBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server forced to shutdown", err)
	}
	grpcServer.GracefulStop()

	log.Info(context.Background(), "server exited")
	return serveErr
}

// sessionStore builds the cart session backend named by the config. The
// returned func releases any client it opened.
func sessionStore(ctx context.Context, cfg *config.Config, db *mongo.Database, redisClient *redis.Client, opts []option.ClientOption) (repository.SessionRepository, func(), error) {
	switch cfg.Cart.Store {
	case config.StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCP.ProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return repository.NewFirestoreSessionRepository(client), func() { client.Close() }, nil
	case config.StoreRedis:
		return repository.NewRedisSessionRepository(redisClient), func() {}, nil
	default:
		return repository.NewMongoSessionRepository(db), func() {}, nil
	}
}

func tokenVerifier(ctx context.Context, cfg *config.Config, opts []option.ClientOption) (auth.Verifier, error) {
	if cfg.Auth.Mode == config.AuthDev {
		return auth.HeaderVerifier{}, nil
	}

	var fbConfig *firebase.Config
	if cfg.GCP.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.GCP.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return auth.NewFirebaseVerifier(client), nil
}

func kafkaGroupID(cfg *config.Config) string {
	if cfg.Kafka.GroupID != "" {
		return cfg.Kafka.GroupID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return cfg.App.Name + "-" + host
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"subtrack/internal/api/v1/handler"
	"subtrack/internal/config"
	"subtrack/internal/metrics"
	"subtrack/internal/middleware"
	"subtrack/internal/pubsub"
	"subtrack/internal/repository"
	"subtrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// stores groups the repositories of the selected account store.
type stores struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	credentials   repository.CredentialRepository
	ledger        repository.ReminderLedgerRepository
	ping          func(ctx context.Context) error
}

// New wires the application. The returned cleanup releases every connection it opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Str("store_driver", cfg.StoreDriver).Msg("App environment loaded")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// 1. Account store
	st, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	// 2. Calendar credential backend
	var credentials service.CredentialStore
	switch cfg.CredentialBackend {
	case config.CredentialBackendSecretManager:
		sm, err := service.NewSecretManagerCredentialStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = sm.Close() })
		credentials = sm
		logger.Info().Msg("Calendar credentials stored in Secret Manager")
	default:
		credentials = service.NewDatabaseCredentialStore(st.credentials)
	}

	// 3. OAuth state and code ledger
	var states repository.OAuthStateRepository
	if cfg.RedisURL != "" {
		client, err := repository.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Close() })
		states = repository.NewRedisOAuthStateRepo(client)
		logger.Info().Msg("Redis connection successful")
	} else {
		logger.Warn().Msg("REDIS_URL is not set, OAuth state is kept in process memory")
		states = repository.NewMemoryOAuthStateRepo()
	}

	// 4. Pub/Sub publisher
	var publisher pubsub.Publisher
	if cfg.PubSubReminderTopic != "" {
		p, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = p.Close() })
		publisher = p
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}

	// 5. Services
	oauthConfig := service.NewGoogleOAuthConfig(cfg)
	reminderOpts := service.ReminderOptions{
		Location:  loc,
		Timeout:   cfg.CalendarTimeout,
		Planner:   service.NewOverridePlanner(cfg.ReminderOverrideMode),
		Publisher: publisher,
		Topic:     cfg.PubSubReminderTopic,
	}
	if cfg.ReminderLedger {
		reminderOpts.Ledger = st.ledger
	}

	userSvc := service.NewUserService(st.users, cfg.JWTSecret, cfg.JWTTTL, logger)
	adminSvc := service.NewAdminService(st.users, logger)
	subscriptionSvc := service.NewSubscriptionService(st.users, st.subscriptions, logger)
	oauthSvc := service.NewOAuthService(oauthConfig, states, credentials, service.OAuthOptions{
		StateTTL:        cfg.OAuthStateTTL,
		CodeTTL:         cfg.OAuthCodeTTL,
		ExchangeTimeout: cfg.OAuthExchangeTimeout,
	}, logger)
	calendars := service.NewGoogleCalendarProvider(oauthConfig, credentials, cfg.CalendarEndpoint, logger)
	reminderSvc := service.NewReminderService(credentials, subscriptionSvc, calendars, reminderOpts, logger)

	// 6. Handlers and middleware
	validate := validator.New(validator.WithRequiredStructEnabled())
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	browserAuthMiddleware := middleware.BrowserAuthMiddleware(cfg.JWTSecret, logger)
	adminMiddleware := middleware.AdminMiddleware(userSvc, logger)

	apiV1Mux := http.NewServeMux()
	handler.NewAuthHandler(userSvc, validate, logger).RegisterRoutes(apiV1Mux)
	handler.NewUserHandler(userSvc, validate, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewSubscriptionHandler(subscriptionSvc, validate, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewAdminHandler(adminSvc, logger).RegisterRoutes(apiV1Mux, authMiddleware, adminMiddleware)
	handler.NewReminderHandler(oauthSvc, reminderSvc, logger).RegisterRoutes(apiV1Mux, authMiddleware, browserAuthMiddleware)

	mux := http.NewServeMux()
	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", metrics.Middleware(apiV1Mux)(apiV1Mux)))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", healthHandler(st.ping))

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", legacyRedirect)

	// 7. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Info().Msg("Router initialized")
	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), cleanup, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		db, err := repository.NewMongoDatabase(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		}
		store := repository.NewMongoStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("MongoDB connection successful")
		return &stores{
			users:         store,
			subscriptions: store,
			credentials:   store,
			ledger:        store,
			ping:          func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
		}, closeFn, nil

	case config.StoreDriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.DBConnectionString, cfg.IsDevelopment())
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("Database connection successful")
		return &stores{
			users:         repository.NewUserRepo(pool),
			subscriptions: repository.NewSubscriptionRepo(pool),
			credentials:   repository.NewCredentialRepo(pool),
			ledger:        repository.NewReminderLedgerRepo(pool),
			ping:          pool.Ping,
		}, pool.Close, nil
	}
	return nil, nil, errors.New("unsupported store driver " + cfg.StoreDriver)
}

func legacyRedirect(w http.ResponseWriter, r *http.Request) {
	target := "/v1/" + strings.TrimPrefix(r.URL.Path, "/api/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status, code := "ok", http.StatusOK
		if err := ping(ctx); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

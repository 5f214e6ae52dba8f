package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/snacktacular/snacktacular/backend/go-services/handlers"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/changes"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/config"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/database"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/location"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/oidc"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place/handler"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place/repository"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place/store"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/sessions"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/storage"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/tokens"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/metrics"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/middleware"
)

const mongoConnectAttempts = 5

var startTime = time.Now()

// nativeFeed is implemented by collections that can report their own changes.
type nativeFeed interface {
	repository.Collection
	changes.Feed
}

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v sync=%s feed=%s",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Places.SyncMode, cfg.Places.ChangeFeed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors())
	r.Use(gin.Logger(), gin.Recovery())

	// Redis backs sign-out, the shared rate limiter and the redis change feed.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			_ = rdb.Close()
			rdb = nil
		} else {
			sessions.SetBlacklistClient(rdb)
			defer rdb.Close()
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	verifier := newVerifier(ctx, cfg)

	var mongoClient *mongo.Client
	var col nativeFeed
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		col = repository.NewMongoRepo(mongoClient.Database(cfg.MongoDB.Database).Collection(place.CollectionName))
		logger.Infof("places stored in MongoDB %s.%s", cfg.MongoDB.Database, place.CollectionName)
	} else {
		col = repository.NewMemoryRepo()
		logger.Warnf("MONGODB_URI not set; places are kept in memory only")
	}

	feed, pub, closeFeed := newChangeFeed(cfg, col, rdb)
	defer closeFeed()

	var opts []store.Option
	if pub != nil {
		opts = append(opts, store.WithPublisher(pub))
	}
	st := store.New(col, opts...)

	if cfg.Places.SyncMode == config.SyncLive {
		if err := st.Load(ctx); err != nil {
			logger.Warnf("initial place load failed; serving an empty list until the next change: %v", err)
		}
	}

	geo := location.NewClient(cfg.Nominatim.URL,
		location.WithUserAgent(cfg.Nominatim.UserAgent),
		location.WithLimit(cfg.Nominatim.Limit))
	placeOpts := []handler.Option{
		handler.WithLocation(geo),
		handler.WithAutocomplete(geo),
		handler.LoadOnRead(cfg.Places.SyncMode == config.SyncOnRead),
	}
	if cfg.MinIO.Endpoint != "" {
		objects, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("object storage unavailable; snapshots disabled: %v", err)
		} else {
			placeOpts = append(placeOpts, handler.WithSnapshots(storage.NewSnapshotWriter(objects)))
			logger.Infof("snapshots go to bucket %s", objects.Bucket())
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, mongoClient, rdb, verifier))

	handlers.RegisterSwagger(r)
	handlers.NewAuthHandler(verifier, cfg.JWT.AccessTokenTTL).Register(r.Group("/"))
	handler.New(st, middleware.ClaimsUser{}, placeOpts...).
		Register(r.Group("/api/places", middleware.OptionalAuthMiddleware(verifier)))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Places.SyncMode == config.SyncLive && feed != nil {
		g.Go(func() error {
			// a dead listener leaves the list as last loaded; the service keeps serving
			if err := st.Watch(gctx, feed); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("places: change listener stopped: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Infof("starting places service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Errorf("%v", err)
	}
}

// cors sets permissive headers for browser clients and answers preflight requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// newVerifier prefers Keycloak, then a shared HS256 secret, then the
// insecure integration-test verifier. nil means every request is anonymous.
func newVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.KeycloakIssuer(cfg.Keycloak.URL, cfg.Keycloak.Realm), cfg.Keycloak.ClientID)
		if err == nil {
			logger.Infof("verifying tokens against Keycloak realm %q", cfg.Keycloak.Realm)
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		logger.Infof("verifying HS256 tokens with JWT_SECRET")
		return tokens.NewVerifier(cfg.JWT.Secret)
	}
	if cfg.JWT.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	logger.Warn("no token verifier configured; places are saved as anonymous")
	return nil
}

// newChangeFeed picks what the store watches and where it announces writes.
func newChangeFeed(cfg *config.Config, col nativeFeed, rdb *redis.Client) (changes.Feed, changes.Publisher, func()) {
	noop := func() {}
	switch cfg.Places.ChangeFeed {
	case config.FeedNone:
		return nil, nil, noop
	case config.FeedRedis:
		if rdb == nil {
			logger.Fatalf("CHANGE_FEED=redis but Redis is unreachable")
		}
		f := changes.NewRedisFeed(rdb, cfg.Redis.Channel)
		return f, f, noop
	case config.FeedKafka:
		group := cfg.Kafka.GroupID
		if group == "" {
			group = "snacktacular-places-" + uuid.NewString()
		}
		f := changes.NewKafkaFeed(cfg.Kafka.Brokers, cfg.Kafka.Topic, group)
		return f, f, func() {
			if err := f.Close(); err != nil {
				logger.Warnf("closing kafka feed: %v", err)
			}
		}
	}
	// auto and mongo: the collection reports its own changes
	return col, nil, noop
}

func readiness(cfg *config.Config, mc *mongo.Client, rdb *redis.Client, verifier middleware.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		if cfg.MongoDB.URI != "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			deps["mongodb"] = mc != nil && mc.Ping(ctx, nil) == nil
			cancel()
			ready = ready && deps["mongodb"]
		}

		if cfg.Redis.Host != "" && (cfg.RateLimit.UseRedis || cfg.Places.ChangeFeed == config.FeedRedis) {
			deps["redis"] = rdb != nil && rdb.Ping(c.Request.Context()).Err() == nil
			ready = ready && deps["redis"]
		}

		if cfg.Keycloak.URL != "" {
			deps["oidc"] = verifier != nil
			ready = ready && deps["oidc"]
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}

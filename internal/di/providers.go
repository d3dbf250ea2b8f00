package di

import (
	"context"
	"fmt"
	"time"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/internal/domain/repository"
	"CommuteTrends/internal/handler/api"
	lambdahandler "CommuteTrends/internal/handler/lambda"
	internalrepo "CommuteTrends/internal/repository"
	"CommuteTrends/internal/service/cors"
	"CommuteTrends/internal/service/ratelimit"
	"CommuteTrends/internal/usecase"
	"CommuteTrends/pkg/config"
	"CommuteTrends/pkg/database"
	xhttp "CommuteTrends/pkg/http"
	"CommuteTrends/pkg/http/middleware"
	pkgkafka "CommuteTrends/pkg/kafka"
	applogger "CommuteTrends/pkg/logger"
	"CommuteTrends/pkg/metrics"
	"CommuteTrends/pkg/paramstore"
	"CommuteTrends/pkg/server"

	"github.com/labstack/echo/v4"
)

const startupTimeout = 10 * time.Second

// Charts holds one request handler per profile.
type Charts struct {
	Live  *usecase.CommuteChart
	Stats *usecase.CommuteChart
}

// ByName returns the chart for a profile name ("" means commute).
func (c *Charts) ByName(name string) (*usecase.CommuteChart, error) {
	switch name {
	case "", usecase.ProfileCommute:
		return c.Live, nil
	case usecase.ProfileStats:
		return c.Stats, nil
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
}

// ProvideKafkaProducer creates the producer behind the error-log collector.
// It returns nil when the collector is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	cc := cfg.Logging.Collector
	if !cc.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cc.Brokers),
		pkgkafka.WithCompression(cc.Compression),
		pkgkafka.WithRequiredAcks(cc.RequiredAcks),
		pkgkafka.WithMaxAttempts(cc.MaxAttempts),
		pkgkafka.WithWriteTimeout(cc.WriteTimeout),
		pkgkafka.WithBatchTimeout(cc.BatchTimeout),
		pkgkafka.WithAsync(false),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the application logger and attaches the collector
// when a producer is available. The producer is closed if the logger cannot
// be built, since nothing else will own it.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging.Config)
	if err != nil {
		if producer != nil {
			_ = producer.Close()
		}
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		cc := cfg.Logging.Collector
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cc.Interval,
			CountThreshold: cc.CountThreshold,
			Topic:          cc.Topic,
			Source:         cc.Source,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideParamStore connects to Redis when it is the configuration source.
func ProvideParamStore(cfg *config.Config) (*paramstore.RedisStore, error) {
	if cfg.ConfigSource != config.SourceRedis {
		return nil, nil
	}
	store, err := paramstore.NewRedisStore(
		paramstore.WithRedisAddr(cfg.Redis.Addr),
		paramstore.WithRedisPassword(cfg.Redis.Password),
		paramstore.WithRedisDB(cfg.Redis.DB),
		paramstore.WithRedisPool(cfg.Redis.PoolSize, 1),
		paramstore.WithDialTimeout(cfg.Redis.DialTimeout),
	)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "parameter store", err)
	}
	return store, nil
}

// ProvideConfigProvider selects the configuration provider.
func ProvideConfigProvider(cfg *config.Config, store *paramstore.RedisStore, l *applogger.Logger) repository.ConfigProvider {
	if cfg.ConfigSource == config.SourceRedis && store != nil {
		return internalrepo.NewRedisConfigProvider(store, cfg.Redis.Prefix, cfg.Database.Driver, l)
	}
	return internalrepo.NewFileConfigProvider(cfg)
}

// ProvideRuntimeContext reads the configuration snapshot once.
func ProvideRuntimeContext(p repository.ConfigProvider, l *applogger.Logger) (*models.RuntimeContext, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	rc, err := repository.LoadRuntimeContext(ctx, p)
	if err != nil {
		return nil, err
	}
	l.Info("runtime context loaded",
		applogger.String("db_host", rc.Database.Host),
		applogger.String("db_name", rc.Database.Name),
		applogger.String("table", rc.Database.Table),
		applogger.Int("routes", len(rc.Routes)),
	)
	return rc, nil
}

// ProvideDatabaseClient opens the samples store pool. Connection parameters
// come from the runtime context; pool tuning from the application config.
func ProvideDatabaseClient(cfg *config.Config, rc *models.RuntimeContext) (*database.Client, error) {
	db := cfg.Database
	driver := rc.Database.Driver
	if driver == "" {
		driver = db.Driver
	}
	client, err := database.NewClient(
		database.WithDriver(driver),
		database.WithHost(rc.Database.Host),
		database.WithPort(rc.Database.Port),
		database.WithDatabase(rc.Database.Name),
		database.WithCredentials(rc.Database.User, rc.Database.Pass),
		database.WithPath(db.Path),
		database.WithSSLMode(db.SSLMode),
		database.WithMaxConnections(db.MaxOpenConns, db.MaxIdleConns),
		database.WithHTTP(db.UseHTTP),
		database.WithTimeouts(db.DialTimeout, db.QueryTimeout),
		database.WithMaxExecutionTime(db.MaxExecutionTime),
		database.WithPingTimeout(db.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("database client: %w", err)
	}
	return client, nil
}

// ProvideTrafficRepository creates the samples query executor.
func ProvideTrafficRepository(client *database.Client, rc *models.RuntimeContext, cfg *config.Config, l *applogger.Logger) (repository.TrafficQuerier, error) {
	repo, err := internalrepo.NewTrafficRepository(client, rc.Database.Table,
		internalrepo.WithQueryTimeout(cfg.Database.QueryTimeout),
		internalrepo.WithTimestampColumn(cfg.Database.TimestampColumn),
		internalrepo.WithLogger(l),
	)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "traffic repository", err)
	}
	return repo, nil
}

// ProvideCORSPolicy builds the origin policy from the snapshot headers.
func ProvideCORSPolicy(rc *models.RuntimeContext, cfg *config.Config) *cors.Policy {
	return cors.NewPolicy(rc.Headers, cfg.AllowAnyOrigin)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProfileSettings converts a configured profile into handler settings.
func ProfileSettings(cfg *config.Config, name string) (usecase.ProfileSettings, error) {
	p, err := cfg.Profile(name)
	if err != nil {
		return usecase.ProfileSettings{}, err
	}
	if name == "" {
		name = usecase.ProfileCommute
	}
	db := cfg.Database
	return usecase.ProfileSettings{
		Name:              name,
		Mode:              models.TimestampMode(p.TimestampMode),
		WindowDays:        p.WindowDays,
		Unbounded:         p.Unbounded,
		Rounding:          usecase.Rounding(p.Rounding),
		StandardFields:    p.StandardFields,
		DeriveNameFromRow: p.DeriveNameFromRow,
		IncludeStats:      p.IncludeStats,
		Columns:           db.Columns,
		Aliases:           db.FieldAliases,
		Prefix:            db.FieldPrefix,
		DurationColumns:   db.DurationColumns,
		TimestampColumn:   db.TimestampColumn,
	}, nil
}

// ErrorStatus converts the configured per-kind status overrides.
func ErrorStatus(cfg *config.Config) map[models.ErrorKind]int {
	out := make(map[models.ErrorKind]int, len(cfg.ErrorStatus))
	for k, v := range cfg.ErrorStatus {
		out[models.ErrorKind(k)] = v
	}
	return out
}

// ProvideCharts creates the request handler for every profile.
func ProvideCharts(
	cfg *config.Config,
	rc *models.RuntimeContext,
	policy *cors.Policy,
	querier repository.TrafficQuerier,
	m repository.Metrics,
	l *applogger.Logger,
) (*Charts, error) {
	build := func(name string) (*usecase.CommuteChart, error) {
		s, err := ProfileSettings(cfg, name)
		if err != nil {
			return nil, err
		}
		return usecase.NewCommuteChart(rc, policy, querier, usecase.NewProfile(s),
			usecase.WithLogger(l),
			usecase.WithMetrics(m),
			usecase.WithErrorStatus(ErrorStatus(cfg)),
			usecase.WithDefaultErrorStatus(cfg.DefaultErrorStatus),
		), nil
	}

	live, err := build(usecase.ProfileCommute)
	if err != nil {
		return nil, err
	}
	stats, err := build(usecase.ProfileStats)
	if err != nil {
		return nil, err
	}
	return &Charts{Live: live, Stats: stats}, nil
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(l *applogger.Logger, charts *Charts, querier repository.TrafficQuerier) xhttp.Handler {
	return api.NewCommuteEchoHandler(l, charts.Live, charts.Stats, querier)
}

// ProvideHTTPServer creates the Echo server with preflight and optional rate limiting.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, policy *cors.Policy, l *applogger.Logger) *xhttp.Server {
	mw := []echo.MiddlewareFunc{middleware.Preflight(policy)}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		mw = append(mw, middleware.RateLimit(ratelimit.New(rl.Capacity, rl.RefillPerSec)))
	}
	return xhttp.NewServer(handler,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithLogger(l),
		xhttp.WithMiddleware(mw...),
	)
}

// ProvideProxyHandler creates the Lambda adapter for one profile.
func ProvideProxyHandler(l *applogger.Logger, charts *Charts, profile string) (*lambdahandler.ProxyHandler, error) {
	chart, err := charts.ByName(profile)
	if err != nil {
		return nil, err
	}
	return lambdahandler.NewProxyHandler(l, chart), nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	db *database.Client,
	store *paramstore.RedisStore,
	producer *pkgkafka.Producer,
) *server.App {
	closers := []server.Closer{{Name: "database", Close: db.Close}}
	if store != nil {
		closers = append(closers, server.Closer{Name: "redis", Close: store.Close})
	}
	closers = append(closers, server.Closer{Name: "log collector", Close: func() error {
		l.RemoveCollector()
		return nil
	}})
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	return server.New(cfg, l, srv, closers...)
}

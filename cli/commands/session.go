package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/satishbabariya/coconutdal/cli/internal/version"
	"github.com/satishbabariya/coconutdal/config"
	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/satishbabariya/coconutdal/runtime/client"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/sigcache"
	"github.com/satishbabariya/coconutdal/telemetry"
	"go.opentelemetry.io/otel"
)

// metricsNamespace prefixes the CLI's Prometheus metrics.
const metricsNamespace = "coconut"

// session is an open Dal plus the resources the CLI attached to it.
type session struct {
	dal      *client.Dal
	cfg      *config.Config
	name     string
	registry *prometheus.Registry
	cache    sigcache.Cache
	shutdown func(context.Context) error
}

// errMissingVariant is returned for --dsn without --variant.
var errMissingVariant = errors.New("--variant is required with --dsn")

// open creates a session for the selected connection. name overrides
// --connection when not empty.
func (o *globalOptions) open(ctx context.Context, name string) (*session, error) {
	if name == "" {
		name = o.connection
	}
	s := &session{name: name, registry: prometheus.NewRegistry()}

	metrics, err := telemetry.NewMetrics(metricsNamespace, s.registry)
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithMiddleware(metrics.Middleware()),
		client.WithCatchDbExceptions(o.catch),
		client.WithAlwaysTextQuery(o.text),
	}
	if o.debug {
		opts = append(opts, client.WithMiddleware(client.LoggingMiddleware(debug.Logger())))
	}
	if o.traceEndpoint != "" {
		shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
			Endpoint:       o.traceEndpoint,
			ServiceName:    "coconut",
			ServiceVersion: version.Version,
			Insecure:       true,
		})
		if err != nil {
			return nil, err
		}
		s.shutdown = shutdown
		opts = append(opts, client.WithMiddleware(telemetry.TracingMiddleware(otel.Tracer("coconut"))))
	}

	if o.redisAddr != "" {
		s.cache = sigcache.NewRedisCache(sigcache.RedisConfig{Addr: o.redisAddr})
	} else {
		s.cache = sigcache.NewMemoryCache(0)
	}
	opts = append(opts, client.WithSignatureCache(s.cache, 0))
	if o.driver != "" {
		opts = append(opts, client.WithDriver(o.driver))
	}

	if o.dsn != "" {
		if o.variant == "" {
			s.Close()
			return nil, errMissingVariant
		}
		variant, err := dialect.ParseVariant(o.variant)
		if err != nil {
			s.Close()
			return nil, err
		}
		if s.dal, err = client.New(variant, o.dsn, opts...); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cfg = cfg
	if s.dal, err = client.NewFromConfig(cfg, name, opts...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// reload points the session at the connection it was opened with in cfg.
func (s *session) reload(cfg *config.Config) error {
	conn, err := cfg.Lookup(s.name)
	if err != nil {
		return err
	}
	variant, err := dialect.ParseVariant(conn.Variant)
	if err != nil {
		return err
	}
	if variant != s.dal.Variant() {
		return fmt.Errorf("connection %q changed variant to %s; restart to switch backends", conn.Name, variant)
	}
	s.cfg = cfg
	s.dal.SetConnection(conn.ConnectionString)
	return nil
}

// Close releases the signature cache and flushes traces.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			debug.Warn("failed to close signature cache", "error", err)
		}
	}
	if s.shutdown != nil {
		if err := s.shutdown(context.Background()); err != nil {
			debug.Warn("failed to flush traces", "error", err)
		}
	}
}

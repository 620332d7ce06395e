// Package client provides the execution engine of coconutdal.
//
// A Dal runs stored procedures and text queries against one backend variant.
// Every operation opens its own connection, runs one command and releases the
// connection before returning, unless an ambient transaction is carried by the
// context (see WithTransaction).
//
// A Dal is not safe for concurrent use: IsTextQuery and LastError are
// per-instance state read and reset by each operation. Use one Dal per
// goroutine; distinct instances share nothing.
package client

import (
	"log/slog"
	"time"

	"github.com/satishbabariya/coconutdal/config"
	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/sigcache"
)

// Dal is the execution engine for one backend variant.
type Dal struct {
	adapter    *dialect.Adapter
	connection string
	lastErr    error

	// CatchDbExceptions suppresses classified database errors. The error is
	// still recorded in LastError and the operation returns a neutral result.
	CatchDbExceptions bool
	// IsTextQuery runs the next operation as a text query. It is reset when
	// that operation returns.
	IsTextQuery bool
	// IsAlwaysTextQuery runs every operation as a text query.
	IsAlwaysTextQuery bool

	middlewares []Middleware
	signatures  *sigcache.Store
	logger      *slog.Logger
}

type options struct {
	driver      string
	middlewares []Middleware
	cache       sigcache.Cache
	ttl         time.Duration
	logger      *slog.Logger
	catch       bool
	alwaysText  bool
}

// Option configures a Dal.
type Option func(*options)

// WithDriver selects the database/sql driver for the variant, for example
// "pgx" instead of the default "postgres".
func WithDriver(name string) Option {
	return func(o *options) { o.driver = name }
}

// WithMiddleware appends middlewares to the chain.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mw...) }
}

// WithSignatureCache memoizes derived stored-procedure signatures in cache.
func WithSignatureCache(cache sigcache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = cache
		o.ttl = ttl
	}
}

// WithLogger sets the logger. The process-wide debug logger is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCatchDbExceptions sets the initial CatchDbExceptions value.
func WithCatchDbExceptions(catch bool) Option {
	return func(o *options) { o.catch = catch }
}

// WithAlwaysTextQuery sets the initial IsAlwaysTextQuery value.
func WithAlwaysTextQuery(always bool) Option {
	return func(o *options) { o.alwaysText = always }
}

// New creates a Dal for variant bound to the connection descriptor. No
// configuration file is consulted and no connection is opened.
func New(variant dialect.Variant, descriptor string, opts ...Option) (*Dal, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	adapter, err := dialect.Lookup(variant, o.driver)
	if err != nil {
		return nil, err
	}

	d := &Dal{
		adapter:           adapter,
		connection:        descriptor,
		CatchDbExceptions: o.catch,
		IsAlwaysTextQuery: o.alwaysText,
		middlewares:       o.middlewares,
		logger:            o.logger,
	}
	if o.cache != nil {
		d.signatures = sigcache.NewStore(o.cache, o.ttl)
	}
	return d, nil
}

// NewFromConfig creates a Dal from the connection registered under name in
// cfg. An empty name selects the configured default.
func NewFromConfig(cfg *config.Config, name string, opts ...Option) (*Dal, error) {
	conn, err := cfg.Lookup(name)
	if err != nil {
		return nil, err
	}
	variant, err := dialect.ParseVariant(conn.Variant)
	if err != nil {
		return nil, err
	}
	if conn.Driver != "" {
		opts = append([]Option{WithDriver(conn.Driver)}, opts...)
	}
	return New(variant, conn.ConnectionString, opts...)
}

// Connection returns the connection descriptor.
func (d *Dal) Connection() string {
	return d.connection
}

// SetConnection replaces the connection descriptor. It takes effect on the
// next operation.
func (d *Dal) SetConnection(descriptor string) {
	d.connection = descriptor
}

// LastError returns the database error recorded by the most recent
// operation, or nil.
func (d *Dal) LastError() error {
	return d.lastErr
}

// Variant returns the backend variant.
func (d *Dal) Variant() dialect.Variant {
	return d.adapter.Variant
}

// Driver returns the database/sql driver name.
func (d *Dal) Driver() string {
	return d.adapter.DriverName
}

// Use adds a middleware to the chain
func (d *Dal) Use(middleware Middleware) {
	d.middlewares = append(d.middlewares, middleware)
}

func (d *Dal) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return debug.Logger()
}

package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/infra/config"
)

const (
	connectTimeout = 5 * time.Second
	// each throttled request costs one pipelined round trip
	opTimeout = 500 * time.Millisecond
)

// Client owns the connection backing the attempt windows used by the
// HTTP rate limiter.
type Client struct {
	rdb    *redis.Client
	addr   string
	logger *zap.Logger
}

// Options converts settings into go-redis options. Timeouts are short since
// the limiter fails open when Redis is slow.
func Options(cfg config.RedisSettings) *redis.Options {
	opts := &redis.Options{
		Addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:        cfg.Password,
		DB:              cfg.DB,
		MinIdleConns:    2,
		MaxRetries:      1,
		DialTimeout:     connectTimeout,
		ReadTimeout:     opTimeout,
		WriteTimeout:    opTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}
	return opts
}

// NewClient dials Redis and fails fast when the first ping does not answer.
func NewClient(ctx context.Context, cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := Options(cfg)
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("redis connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls", cfg.TLSEnabled),
	)
	return &Client{rdb: rdb, addr: opts.Addr, logger: logger}, nil
}

// Client exposes the connection for repositories.
func (c *Client) Client() redis.UniversalClient {
	return c.rdb
}

// HealthCheck backs the readiness check.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	c.logger.Info("closing redis connection", zap.String("addr", c.addr))
	return c.rdb.Close()
}

package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server behind the rate limiters and the
// event browse cache.
type RedisConfig struct {
    Addr        string
    Password    string
    DB          int
    TLS         bool
    TLSInsecure bool          // skip certificate checks, for local tunnels only
    PingTimeout time.Duration
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (preferred over REDIS_ADDR),
// REDIS_PASSWORD, REDIS_DB, REDIS_TLS and REDIS_TLS_INSECURE.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    c := RedisConfig{
        Addr:        addr,
        Password:    envStr("REDIS_PASSWORD", ""),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        TLSInsecure: envBool("REDIS_TLS_INSECURE", false),
        PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
    }
    if c.DB < 0 { c.DB = 0 }
    if c.PingTimeout <= 0 { c.PingTimeout = 2 * time.Second }
    return c
}

// Options converts the config into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
    opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSInsecure}
        if host, _, err := net.SplitHostPort(c.Addr); err == nil {
            opts.TLSConfig.ServerName = host
        }
    }
    return opts
}

// NewRedisClient connects with LoadRedisConfig and pings once.  It returns
// nil when the server is unreachable; callers then run without rate limiting
// and caching.
func NewRedisClient() *redis.Client {
    cfg := LoadRedisConfig()
    client := redis.NewClient(cfg.Options())
    ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}

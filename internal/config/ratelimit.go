package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig tunes one Redis token bucket.  Checkout and the gateway
// webhook each get their own bucket so a burst of deliveries cannot starve
// buyers, and the other way round.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// Key strategies understood by the limiter middleware.
var rateKeyStrategies = map[string]bool{
    "ip": true, "user": true, "route": true,
    "ip_user": true, "ip_route": true, "user_route": true, "ip_user_route": true,
}

const (
    checkoutRatePrefix = "meethub:rl"
    webhookRatePrefix  = "meethub:rl:webhook"
)

// LoadRateLimitConfig reads the checkout bucket from RATE_LIMIT_* variables.
// It is keyed per client, per user and per route.
func LoadRateLimitConfig() RateLimitConfig {
    return loadRateLimit("RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       20,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user_route",
        Prefix:         checkoutRatePrefix,
    })
}

// LoadWebhookRateLimitConfig reads the webhook bucket from
// WEBHOOK_RATE_LIMIT_* variables.  Deliveries come from a pool of gateway
// addresses, so the default bucket is one shared, generous bucket per route.
// Its prefix never collides with the checkout bucket.
func LoadWebhookRateLimitConfig() RateLimitConfig {
    c := loadRateLimit("WEBHOOK_RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       500,
        RefillTokens:   50,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "route",
        Prefix:         webhookRatePrefix,
    })
    if c.Prefix == LoadRateLimitConfig().Prefix {
        c.Prefix += ":webhook"
    }
    return c
}

func loadRateLimit(env string, def RateLimitConfig) RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool(env+"_ENABLED", def.Enabled),
        Capacity:       envInt(env+"_CAPACITY", def.Capacity),
        RefillTokens:   envInt(env+"_REFILL_TOKENS", def.RefillTokens),
        RefillInterval: envDur(env+"_REFILL_INTERVAL", def.RefillInterval),
        TTL:            envDur(env+"_TTL", def.TTL),
        KeyStrategy:    strings.ToLower(envStr(env+"_KEY_STRATEGY", def.KeyStrategy)),
        Prefix:         strings.TrimRight(envStr(env+"_PREFIX", def.Prefix), ":"),
        Debug:          envBool(env+"_DEBUG", false),
    }
    if every := envDur(env+"_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens = 1
        c.RefillInterval = every
    }
    if !rateKeyStrategies[c.KeyStrategy] { c.KeyStrategy = def.KeyStrategy }
    if c.Prefix == "" { c.Prefix = def.Prefix }
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    // keys must outlive a full refill of an empty bucket
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
    return c
}

func envStr(k, d string) string { if v := strings.TrimSpace(os.Getenv(k)); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
    switch v {
    case "1", "true", "yes", "on": return true
    case "0", "false", "no", "off": return false
    }
    return d
}
func envInt(k string, d int) int {
    if n, err := strconv.Atoi(envStr(k, "")); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(envStr(k, "")); err == nil { return dur }
    return d
}

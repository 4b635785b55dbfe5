package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis cache in front of the public event
// listing and event detail routes.  Event writes purge every key under
// Prefix, so TTL only bounds staleness caused by out-of-band edits.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

const (
    defaultCacheTTL     = 30 * time.Second
    defaultCacheMaxBody = 1 << 20
)

var cacheKeyStrategies = map[string]bool{"route": true, "route_query": true, "method_route": true, "method_route_query": true}

// LoadCacheConfig reads CACHE_* variables.  Only safe methods can be cached;
// anything else in CACHE_METHODS is dropped.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", defaultCacheTTL),
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:       strings.TrimRight(envStr("CACHE_PREFIX", "meethub:events"), ":"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", defaultCacheMaxBody),
    }
    if c.TTL <= 0 { c.TTL = defaultCacheTTL }
    if c.MaxBodyBytes <= 0 { c.MaxBodyBytes = defaultCacheMaxBody }
    if !cacheKeyStrategies[c.KeyStrategy] { c.KeyStrategy = "route_query" }
    if c.Prefix == "" { c.Prefix = "meethub:events" }
    if len(c.Methods) == 0 { c.Methods = map[string]bool{"GET": true} }
    return c
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        switch p = strings.TrimSpace(strings.ToUpper(p)); p {
        case "GET", "HEAD":
            m[p] = true
        }
    }
    return m
}

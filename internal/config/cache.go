package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache in front of the public
// catalog.  KeyParts lists what identifies a response: any of "method",
// "path" and "query".
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyParts     []string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_*.  The catalog only changes when habitctl
// seeds it (which purges the prefix), so the default TTL is long.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      upperSet(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", time.Hour),
		KeyParts:     splitList(envStr("CACHE_KEY_PARTS", "path,query")),
		Prefix:       envStr("CACHE_PREFIX", "habot:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func upperSet(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range splitList(s) {
		m[strings.ToUpper(p)] = true
	}
	return m
}

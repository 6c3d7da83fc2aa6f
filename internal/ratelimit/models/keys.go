package models

import (
	"fmt"
	"strings"
)

// KeyPrefix represents the type of rate limit key.
type KeyPrefix string

const (
	KeyPrefixIP    KeyPrefix = "ip"
	KeyPrefixLogin KeyPrefix = "login"
)

// RateLimitKey builds bucket keys. Segments are escaped so user-controlled
// identifiers cannot collide with another bucket.
type RateLimitKey struct {
	prefix   KeyPrefix
	segments []string
}

// NewIPKey keys a bucket by client address.
func NewIPKey(ip string) RateLimitKey {
	return RateLimitKey{prefix: KeyPrefixIP, segments: []string{sanitizeKeySegment(ip)}}
}

// NewLoginKey keys a bucket by tenant schema and login identifier, so the
// same email in two tenants is throttled independently.
func NewLoginKey(schema, identifier string) RateLimitKey {
	return RateLimitKey{
		prefix:   KeyPrefixLogin,
		segments: []string{sanitizeKeySegment(schema), sanitizeKeySegment(strings.ToLower(identifier))},
	}
}

func (k RateLimitKey) Prefix() KeyPrefix {
	return k.prefix
}

func (k RateLimitKey) String() string {
	return fmt.Sprintf("%s:%s", k.prefix, strings.Join(k.segments, ":"))
}

// sanitizeKeySegment escapes '_' to '__' first, then ':' to '_c', which makes
// the mapping injective.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}

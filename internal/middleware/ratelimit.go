package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/fairshare/internal/auth"
)

type clientIPKey struct{}

// TrustProxies resolves the client address from X-Forwarded-For, but only for
// requests whose peer falls inside one of the trusted prefixes. The header is
// read right to left and the first hop outside the trusted set is the client.
// With no prefixes the header is never consulted.
func TrustProxies(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedFor(r, trusted); ok {
				r = r.WithContext(context.WithValue(r.Context(), clientIPKey{}, ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedFor(r *http.Request, trusted []netip.Prefix) (string, bool) {
	if len(trusted) == 0 {
		return "", false
	}
	peer, err := netip.ParseAddr(remoteHost(r))
	if err != nil || !isTrusted(peer, trusted) {
		return "", false
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			return "", false
		}
		if !isTrusted(addr, trusted) {
			return addr.Unmap().String(), true
		}
	}
	return "", false
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ParsePrefixes parses trusted proxy entries. A bare address is taken as a
// single-host prefix.
func ParsePrefixes(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			addr, err := netip.ParseAddr(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// RealIP returns the client address: the hop TrustProxies resolved, or the
// connection peer.
func RealIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Policy is a fixed-window limit. Each policy counts separately, so a partner
// who spends their PIN attempts can still vote.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per policy and caller in memory.
type RateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow counts one request for key under p. When the limit is exceeded it
// returns false and the time left until the window resets.
func (rl *RateLimiter) Allow(key string, p Policy) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	id := p.Name + "|" + key
	w, ok := rl.windows[id]
	if !ok || !now.Before(w.resetAt) {
		rl.windows[id] = &window{count: 1, resetAt: now.Add(p.Window)}
		return true, 0
	}
	w.count++
	if w.count > p.Limit {
		return false, w.resetAt.Sub(now)
	}
	return true, 0
}

// Len returns the number of live windows.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Cleanup drops windows that have already reset.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, id)
		}
	}
}

// RateLimit applies p per caller (see CallerKey). Rejected requests get 429,
// a Retry-After header in whole seconds and a body the client can parse the
// delay from.
func RateLimit(limiter *RateLimiter, p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(CallerKey(r), p)
			if !ok {
				retry := strconv.Itoa(max(int(math.Ceil(wait.Seconds())), 1))
				w.Header().Set("Retry-After", retry)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests, retry in " + retry + "s",
					"code":  "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerKey identifies the authenticated partner, or the client IP before
// authentication.
func CallerKey(r *http.Request) string {
	if id := auth.PartnerID(r.Context()); id != "" {
		return "partner:" + id
	}
	return "ip:" + RealIP(r)
}

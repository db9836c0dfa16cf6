// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginProtection rate-limits sign-in attempts per client IP and locks out
// accounts after repeated failures.
type LoginProtection struct {
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex

	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.Mutex

	ipRate            rate.Limit
	ipBurst           int
	maxFailedAttempts int
	lockoutDuration   time.Duration
	attemptWindow     time.Duration
}

// loginAttempt tracks failed sign-in attempts for an account.
type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is sign-in requests per second per IP.
	IPRateLimit float64
	// IPBurst is the maximum burst size per IP.
	IPBurst int
	// MaxFailedAttempts before account lockout.
	MaxFailedAttempts int
	// LockoutDuration is the account lockout time.
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts.
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5, // 1 request per 2 seconds
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 0.5
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = 5
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}

	return &LoginProtection{
		limiters:          make(map[string]*rate.Limiter),
		failedAttempts:    make(map[string]*loginAttempt),
		ipRate:            rate.Limit(cfg.IPRateLimit),
		ipBurst:           cfg.IPBurst,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}
}

// Middleware rate-limits requests per client IP.
func (lp *LoginProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !lp.limiterFor(ip).Allow() {
			slog.Warn("sign-in rate limit exceeded", "ip", ip)
			WriteJSONError(w, http.StatusTooManyRequests, "too many sign-in attempts, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsLocked reports whether the account is currently locked out.
func (lp *LoginProtection) IsLocked(email string) bool {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	attempt, ok := lp.failedAttempts[email]
	if !ok {
		return false
	}
	if time.Now().Before(attempt.lockedUntil) {
		return true
	}
	if !attempt.lockedUntil.IsZero() && time.Now().After(attempt.lockedUntil) {
		delete(lp.failedAttempts, email)
	}
	return false
}

// RecordFailure registers a failed sign-in for the account and locks it out
// when the threshold is reached.
func (lp *LoginProtection) RecordFailure(email string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := time.Now()
	attempt, ok := lp.failedAttempts[email]
	if !ok || now.Sub(attempt.firstFailed) > lp.attemptWindow {
		lp.failedAttempts[email] = &loginAttempt{count: 1, firstFailed: now}
		return
	}

	attempt.count++
	if attempt.count >= lp.maxFailedAttempts {
		attempt.lockedUntil = now.Add(lp.lockoutDuration)
		slog.Warn("account locked after repeated sign-in failures", "email", email)
	}
}

// RecordSuccess clears the failure history for the account.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()
	delete(lp.failedAttempts, email)
}

func (lp *LoginProtection) limiterFor(ip string) *rate.Limiter {
	lp.limitersMu.Lock()
	defer lp.limitersMu.Unlock()

	limiter, ok := lp.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(lp.ipRate, lp.ipBurst)
		lp.limiters[ip] = limiter
	}
	return limiter
}

// clientIP extracts the client address, relying on chi's RealIP middleware
// having rewritten RemoteAddr from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

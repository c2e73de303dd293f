// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LoginProtection combines per-IP rate limiting of sign-in forms with
// lockout of e-mail addresses after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]
	logger     *slog.Logger
	now        func() time.Time

	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.Mutex

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout
	attemptWindow     time.Duration
}

// loginAttempt tracks failed sign-ins for one address.
type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// maxLockout caps the exponential lockout.
const maxLockout = 24 * time.Hour

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is the base lockout time (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failures (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance. Zero config
// values take their defaults.
func NewLoginProtection(cfg LoginProtectionConfig, logger *slog.Logger) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		logger:            logger,
		now:               time.Now,
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}
}

func attemptKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsLocked(email string) (bool, time.Duration) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	attempt, ok := lp.failedAttempts[attemptKey(email)]
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(attempt.lockedUntil) {
		return true, attempt.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure records a failed sign-in and reports whether email is now
// locked, and for how long.
func (lp *LoginProtection) RecordFailure(email string) (bool, time.Duration) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	key := attemptKey(email)
	now := lp.now()
	attempt, ok := lp.failedAttempts[key]
	switch {
	case !ok:
		attempt = &loginAttempt{firstFailed: now}
		lp.failedAttempts[key] = attempt
	case now.Sub(attempt.firstFailed) > lp.attemptWindow:
		attempt.count = 0
		attempt.firstFailed = now
	}

	attempt.count++
	if attempt.count < lp.maxFailedAttempts {
		return false, 0
	}

	lockDuration := lp.lockoutDuration
	for range attempt.lockouts {
		lockDuration *= 2
		if lockDuration >= maxLockout {
			lockDuration = maxLockout
			break
		}
	}
	attempt.lockedUntil = now.Add(lockDuration)
	attempt.lockouts++
	attempt.count = 0

	lp.logger.Warn("sign-in locked after failed attempts",
		"email", key,
		"lockouts", attempt.lockouts,
		"duration", lockDuration,
	)
	return true, lockDuration
}

// RecordSuccess clears the failures of email.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()
	delete(lp.failedAttempts, attemptKey(email))
}

// RemainingAttempts returns the failures left before a lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	attempt, ok := lp.failedAttempts[attemptKey(email)]
	if !ok || lp.now().Sub(attempt.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-attempt.count, 0)
}

// Prune drops expired failure records.
func (lp *LoginProtection) Prune() {
	now := lp.now()
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()
	for key, attempt := range lp.failedAttempts {
		if now.After(attempt.lockedUntil) && now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, key)
		}
	}
}

// Middleware rate limits POST requests per IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !lp.ipLimiters.get(ip).Allow() {
				lp.logger.Warn("login rate limit exceeded", "ip", ip)
				http.Error(w, "Too many sign-in attempts. Please wait and try again.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

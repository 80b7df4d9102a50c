// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratelimit implements per-client sliding-window request limiting.
// It is a single-process approximation: instances do not coordinate, which
// is a documented limitation rather than a bug.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agoramarket/agora/internal/observability/logger"
	"golang.org/x/time/rate"
)

// Limiter counts request timestamps per client key inside a trailing
// window. The mutex serializes the check-and-append so two concurrent
// requests from one client can never both take the last remaining slot.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time

	maxRequests int
	window      time.Duration
	now         func() time.Time

	// Throttles the rejection warn log so a hammering client cannot turn
	// the limiter into a log flood.
	logEvery rate.Sometimes
}

// New creates a limiter admitting at most maxRequests per client key within
// the trailing window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		logEvery:    rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Allow reports whether clientKey may proceed. When admitted, the current
// time is appended to the client's window; when rejected, state is left
// untouched. Entries older than the window are evicted lazily here.
func (l *Limiter) Allow(clientKey string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.evict(l.requests[clientKey], now)

	if len(timestamps) >= l.maxRequests {
		l.requests[clientKey] = timestamps
		l.logEvery.Do(func() {
			slog.Warn("rate limit exceeded",
				logger.Component("ratelimit"),
				logger.ClientKey(clientKey),
				logger.MaxRequests(l.maxRequests),
			)
		})
		return false
	}

	l.requests[clientKey] = append(timestamps, now)
	return true
}

// Cleanup prunes client keys whose windows are empty after eviction,
// bounding memory growth from drive-by clients.
func (l *Limiter) Cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, timestamps := range l.requests {
		kept := l.evict(timestamps, now)
		if len(kept) == 0 {
			delete(l.requests, key)
			continue
		}
		l.requests[key] = kept
	}
}

// evict drops timestamps that fell out of the trailing window.
func (l *Limiter) evict(timestamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Size returns the number of tracked client keys.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

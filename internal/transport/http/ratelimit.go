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

package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/errs"
	"github.com/agoramarket/agora/internal/ratelimit"
)

// RateLimitMiddleware rejects requests whose client key exhausted the
// limiter's window. A request with no derivable client key is a client
// error, not an admit-by-default.
func (h *Handler) RateLimitMiddleware(limiter *ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if key == "" {
				respondError(w, r, errs.Validation("unable to determine client address"))
				return
			}

			if !limiter.Allow(key) {
				if h.metrics != nil {
					h.metrics.RateLimitRejects.Add(r.Context(), 1)
				}
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeRateLimited,
					Resource:  "http",
					IPAddress: key,
					Metadata:  map[string]any{audit.AttrClientKey: key},
				})
				respondError(w, r, errs.RateLimited())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey derives the throttling key for a request: the first entry of
// X-Forwarded-For, then X-Real-IP, then the connection's remote address.
// Returns "" when none of the three yields an address.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

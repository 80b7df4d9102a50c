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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// AuthMetrics holds the instruments the authentication core records into.
type AuthMetrics struct {
	LoginAttempts     metric.Int64Counter
	LoginFailures     metric.Int64Counter
	Lockouts          metric.Int64Counter
	RateLimitRejects  metric.Int64Counter
	TokensIssued      metric.Int64Counter
	HashDurationMilli metric.Float64Histogram
}

// NewAuthMetrics registers the authentication instruments on the meter.
func (m *Meter) NewAuthMetrics() (*AuthMetrics, error) {
	loginAttempts, err := m.counter("auth_login_attempts_total", "Total credential-check attempts")
	if err != nil {
		return nil, err
	}
	loginFailures, err := m.counter("auth_login_failures_total", "Failed credential checks")
	if err != nil {
		return nil, err
	}
	lockouts, err := m.counter("auth_lockouts_total", "Accounts locked after repeated failures")
	if err != nil {
		return nil, err
	}
	rateLimited, err := m.counter("auth_rate_limited_total", "Requests rejected by the rate limiter")
	if err != nil {
		return nil, err
	}
	tokensIssued, err := m.counter("auth_tokens_issued_total", "Access tokens issued")
	if err != nil {
		return nil, err
	}
	hashDuration, err := m.meter.Float64Histogram(
		"auth_hash_duration_ms",
		metric.WithDescription("Password hash/verify duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram auth_hash_duration_ms: %w", err)
	}

	return &AuthMetrics{
		LoginAttempts:     loginAttempts,
		LoginFailures:     loginFailures,
		Lockouts:          lockouts,
		RateLimitRejects:  rateLimited,
		TokensIssued:      tokensIssued,
		HashDurationMilli: hashDuration,
	}, nil
}

func (m *Meter) counter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

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

package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(maxRequests int, window time.Duration, at *time.Time) *Limiter {
	l := New(maxRequests, window)
	l.now = func() time.Time { return *at }
	return l
}

func TestLimiter_Allow_ExactBudget(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(3, time.Minute, &now)

	// Exactly maxRequests admitted, not one more
	for i := 0; i < 3; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Error("request over budget must be rejected")
	}
}

func TestLimiter_Allow_PerClientIsolation(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, time.Minute, &now)

	if !l.Allow("client-a") {
		t.Fatal("first request for client-a should pass")
	}
	if l.Allow("client-a") {
		t.Error("client-a exhausted its budget")
	}
	// An unrelated client has its own window
	if !l.Allow("client-b") {
		t.Error("client-b must not share client-a's budget")
	}
}

func TestLimiter_Allow_WindowSlides(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, time.Minute, &now)

	l.Allow("client-a")
	now = now.Add(30 * time.Second)
	l.Allow("client-a")

	if l.Allow("client-a") {
		t.Fatal("budget exhausted inside the window")
	}

	// 61s after the first request it falls out of the trailing window,
	// freeing exactly one slot.
	now = now.Add(31 * time.Second)
	if !l.Allow("client-a") {
		t.Error("expected a slot after the oldest entry expired")
	}
	if l.Allow("client-a") {
		t.Error("only one slot should have been freed")
	}
}

func TestLimiter_Allow_RejectionDoesNotConsume(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, time.Minute, &now)

	l.Allow("client-a")
	l.Allow("client-a")

	// Hammering while rejected must not extend the lockout: the window
	// still frees up when the original entries expire.
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		if l.Allow("client-a") {
			t.Fatal("expected rejection inside the window")
		}
	}

	now = now.Add(time.Minute)
	if !l.Allow("client-a") {
		t.Error("rejected requests must not have consumed window slots")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(5, time.Minute, &now)

	for i := 0; i < 10; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	if got := l.Size(); got != 10 {
		t.Fatalf("expected 10 tracked clients, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	l.Cleanup()

	if got := l.Size(); got != 0 {
		t.Errorf("expected stale clients pruned, got %d", got)
	}
}

func TestLimiter_Cleanup_KeepsActiveClients(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(5, time.Minute, &now)

	l.Allow("stale")
	now = now.Add(2 * time.Minute)
	l.Allow("active")

	l.Cleanup()

	if got := l.Size(); got != 1 {
		t.Errorf("expected only the active client to survive, got %d", got)
	}
}

func TestLimiter_ConcurrentClients(t *testing.T) {
	l := New(100, time.Minute)

	// Two goroutines per client racing for the same budget: the admitted
	// total per client must never exceed the max.
	var wg sync.WaitGroup
	admitted := make([]int64, 8)
	var mu sync.Mutex

	for c := 0; c < 8; c++ {
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(client int) {
				defer wg.Done()
				key := fmt.Sprintf("client-%d", client)
				for i := 0; i < 100; i++ {
					if l.Allow(key) {
						mu.Lock()
						admitted[client]++
						mu.Unlock()
					}
				}
			}(c)
		}
	}
	wg.Wait()

	for c, n := range admitted {
		if n != 100 {
			t.Errorf("client %d: expected exactly 100 admitted, got %d", c, n)
		}
	}
}

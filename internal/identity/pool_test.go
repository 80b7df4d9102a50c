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

package identity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agoramarket/agora/internal/errs"
)

func TestHashPool_Do(t *testing.T) {
	pool := NewHashPool(2)
	defer pool.Close()

	ran := false
	err := pool.Do(context.Background(), func() { ran = true })
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !ran {
		t.Error("expected fn to run")
	}
}

func TestHashPool_Do_CanceledContext(t *testing.T) {
	pool := NewHashPool(1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the single worker so submission has no receiver, then the
	// canceled context wins the select.
	block := make(chan struct{})
	pool.jobs <- hashJob{run: func() { <-block }, done: make(chan struct{})}

	err := pool.Do(ctx, func() {})
	close(block)

	if !errs.IsKind(err, errs.KindTaskExecution) {
		t.Errorf("expected task-execution error, got %v", err)
	}
}

func TestHashPool_Do_Closed(t *testing.T) {
	pool := NewHashPool(1)
	pool.Close()

	err := pool.Do(context.Background(), func() {})
	if !errs.IsKind(err, errs.KindTaskExecution) {
		t.Errorf("expected task-execution error after close, got %v", err)
	}
}

func TestHashPool_Concurrent(t *testing.T) {
	pool := NewHashPool(4)
	defer pool.Close()

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.Do(context.Background(), func() {
				atomic.AddInt64(&counter, 1)
			}); err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&counter); got != 50 {
		t.Errorf("expected 50 executions, got %d", got)
	}
}

func TestHashPool_CloseIdempotent(t *testing.T) {
	pool := NewHashPool(1)
	pool.Close()
	pool.Close()
}

func TestHashPool_CloseConcurrent(t *testing.T) {
	pool := NewHashPool(2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Close()
		}()
	}
	wg.Wait()
}

// TestPurpose: no submitter may be left waiting forever when the pool shuts
// down while requests are in flight. Every Do must return, either having run
// its job or with a task-execution error.
func TestHashPool_CloseReleasesSubmitters(t *testing.T) {
	pool := NewHashPool(2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), func() {})
			if err != nil && !errs.IsKind(err, errs.KindTaskExecution) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	pool.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("submitters still waiting after Close")
	}
}

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
	"errors"
	"sync"

	"github.com/agoramarket/agora/internal/errs"
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("hash pool closed")

type hashJob struct {
	run  func()
	done chan struct{}
}

// HashPool runs CPU-intensive hash work on a bounded set of workers so that
// Argon2 never blocks request-handling goroutines. The result is awaited
// only by the request that submitted the job.
type HashPool struct {
	// jobs is unbuffered: a successful send is a rendezvous with a worker,
	// so a submitted job can never sit in a buffer with nobody left to run
	// it after shutdown.
	jobs      chan hashJob
	stop      chan struct{}
	closeOnce sync.Once
}

// NewHashPool starts workers goroutines.
func NewHashPool(workers int) *HashPool {
	if workers < 1 {
		workers = 1
	}
	p := &HashPool{
		jobs: make(chan hashJob),
		stop: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *HashPool) worker() {
	for {
		select {
		case job := <-p.jobs:
			job.run()
			close(job.done)
		case <-p.stop:
			return
		}
	}
}

// Do runs fn on a pool worker and waits for it to finish. Submission and
// waiting both respect ctx; a canceled context or a closed pool surfaces as
// a task-execution error distinct from hashing failure.
func (p *HashPool) Do(ctx context.Context, fn func()) error {
	job := hashJob{run: fn, done: make(chan struct{})}

	select {
	case p.jobs <- job:
	case <-p.stop:
		return errs.TaskExecution(ErrPoolClosed)
	case <-ctx.Done():
		return errs.TaskExecution(ctx.Err())
	}

	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		// The worker still finishes fn; nobody is left waiting for it.
		return errs.TaskExecution(ctx.Err())
	}
}

// Close stops the workers. Jobs already picked up run to completion. Safe
// to call more than once and from concurrent goroutines.
func (p *HashPool) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
	})
}

/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package epoch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RootSource loads the roots of the current epoch window.
type RootSource interface {
	GetActiveEpochRoots(ctx context.Context) ([]string, error)
}

// Refresher periodically reloads a Set from a RootSource. A failed load
// keeps the previous snapshot in place.
type Refresher struct {
	set      *Set
	source   RootSource
	interval time.Duration
	// maxElapsed bounds the retries of a single refresh.
	maxElapsed time.Duration

	// mu orders whole load-and-swap cycles so an older load cannot replace
	// a newer snapshot.
	mu sync.Mutex

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRefresher(set *Set, source RootSource, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		set:        set,
		source:     source,
		interval:   interval,
		maxElapsed: interval / 2,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Refresh loads the roots once, retrying with exponential backoff. Concurrent
// calls run one after another.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var roots []string
	operation := func() error {
		var err error
		roots, err = r.source.GetActiveEpochRoots(ctx)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = r.maxElapsed
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logrus.Warnf("epoch root refresh failed, retrying in %s: %v", wait, err)
	})
	if err != nil {
		return err
	}

	// An open set stays open until the first root is published.
	if len(roots) == 0 && r.set.Open() {
		return nil
	}
	r.set.Swap(roots)
	logrus.WithField("roots", len(roots)).Debug("epoch root set refreshed")
	return nil
}

// Start loads the set once and keeps refreshing it until Stop is called or
// ctx is done. The first load error is returned so callers can fail fast.
func (r *Refresher) Start(ctx context.Context) error {
	r.started.Store(true)
	if err := r.Refresh(ctx); err != nil {
		close(r.done)
		return err
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					logrus.Errorf("epoch root refresh gave up, keeping previous set: %v", err)
				}
			}
		}
	}()
	return nil
}

// Stop ends the refresh loop started by Start and waits for it to exit. It
// is a no-op when Start was never called.
func (r *Refresher) Stop() {
	if !r.started.Load() {
		return
	}
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

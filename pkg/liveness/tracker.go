/*
 * Copyright 2025 the micronav-alpha authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package liveness derives a peer's online/offline state from heartbeat
// status records.
package liveness

import (
	"sync"
	"time"

	"github.com/imeuro/micronav-alpha/pkg/bus"
	"github.com/imeuro/micronav-alpha/pkg/logger"
	"github.com/imeuro/micronav-alpha/pkg/models"
)

const (
	// DefaultStalenessWindow is the maximum heartbeat age for the peer to
	// still count as live.
	DefaultStalenessWindow = 30 * time.Second

	// expiryInterval is how often the retained record is re-evaluated so a
	// silent peer eventually goes offline without a new inbound message.
	expiryInterval = time.Second
)

// Tracker keeps the most recent status record for one peer and computes
// liveness from that record and the current time. Change events are
// edge-triggered: subscribers only see transitions.
type Tracker struct {
	mu        sync.Mutex
	window    time.Duration
	clock     Clock
	logger    logger.Logger
	last      *models.DeviceStatus
	live      bool
	resolved  bool
	changes   *bus.Bus[bool]
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewTracker creates a Tracker with the given staleness window. A zero
// window uses DefaultStalenessWindow; a nil clock uses the real clock.
func NewTracker(window time.Duration, clock Clock, log logger.Logger) *Tracker {
	if window <= 0 {
		window = DefaultStalenessWindow
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Tracker{
		window:  window,
		clock:   clock,
		logger:  log,
		changes: bus.New[bool](),
		done:    make(chan struct{}),
	}
}

// Start runs the expiry loop that re-evaluates the retained record, so a
// stale "online" record turns offline even when the peer has gone silent.
// Stop halts the loop.
func (t *Tracker) Start() {
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()

		ticker := t.clock.Ticker(expiryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-t.done:
				return
			case <-ticker.Chan():
				t.reevaluate()
			}
		}
	}()
}

// Stop halts the expiry loop and closes all subscriptions.
func (t *Tracker) Stop() {
	t.closeOnce.Do(func() {
		close(t.done)
	})

	t.wg.Wait()
	t.changes.Close()
}

// Observe records a new status record and recomputes liveness. The record
// replaces the previous one; nothing is merged or accumulated.
func (t *Tracker) Observe(record models.DeviceStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = &record
	t.update(t.computeLocked())
}

// IsLive reports whether the peer is currently considered online.
func (t *Tracker) IsLive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.computeLocked()
}

// Changes returns a subscription delivering edge-triggered liveness values.
func (t *Tracker) Changes() (<-chan bool, func()) {
	return t.changes.Subscribe()
}

func (t *Tracker) reevaluate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Nothing to expire until a first record arrives.
	if t.last == nil {
		return
	}

	t.update(t.computeLocked())
}

// computeLocked derives liveness purely from the latest record and now.
func (t *Tracker) computeLocked() bool {
	if t.last == nil || t.last.Status != models.StatusOnline {
		return false
	}

	age := t.clock.Now().UnixMilli() - t.last.Timestamp

	return age <= t.window.Milliseconds()
}

// update emits an event only when the computed value differs from the last
// emitted one. The first computation after start always counts as an edge:
// it resolves the initial unknown state.
func (t *Tracker) update(live bool) {
	if t.resolved && live == t.live {
		return
	}

	t.resolved = true
	t.live = live

	if t.logger != nil {
		t.logger.Info().Bool("live", live).Msg("Peer liveness changed")
	}

	t.changes.Publish(live)
}

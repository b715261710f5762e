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

package liveness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imeuro/micronav-alpha/pkg/logger"
	"github.com/imeuro/micronav-alpha/pkg/models"
)

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, tick: make(chan time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

func (c *fakeClock) Ticker(_ time.Duration) Ticker {
	return &fakeTicker{ch: c.tick}
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }
func (*fakeTicker) Stop()                    {}

func onlineAt(ts time.Time) models.DeviceStatus {
	return models.DeviceStatus{Status: models.StatusOnline, Timestamp: ts.UnixMilli()}
}

func TestTrackerStalenessBoundary(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	clock := newFakeClock(base)
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	tracker.Observe(onlineAt(base))
	assert.True(t, tracker.IsLive())

	// One millisecond inside the window.
	clock.Set(base.Add(29999 * time.Millisecond))
	assert.True(t, tracker.IsLive())

	// On the boundary the record still counts.
	clock.Set(base.Add(30000 * time.Millisecond))
	assert.True(t, tracker.IsLive())

	// One millisecond past the window.
	clock.Set(base.Add(30001 * time.Millisecond))
	assert.False(t, tracker.IsLive())
}

func TestTrackerOfflineRecord(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	clock := newFakeClock(base)
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	tracker.Observe(models.DeviceStatus{Status: models.StatusOffline, Timestamp: base.UnixMilli()})
	assert.False(t, tracker.IsLive())

	// A fresh online record replaces the offline one wholesale.
	tracker.Observe(onlineAt(base))
	assert.True(t, tracker.IsLive())
}

func TestTrackerEdgeTriggeredEvents(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	clock := newFakeClock(base)
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	changes, cancel := tracker.Changes()
	defer cancel()

	tracker.Observe(onlineAt(base))
	require.Equal(t, true, <-changes)

	// A second fresh online record is not a transition: no event.
	tracker.Observe(onlineAt(base.Add(time.Second)))
	select {
	case v := <-changes:
		t.Fatalf("unexpected event %v", v)
	default:
	}

	tracker.Observe(models.DeviceStatus{Status: models.StatusOffline, Timestamp: base.UnixMilli()})
	require.Equal(t, false, <-changes)
}

func TestTrackerFirstRecordResolvesUnknown(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	clock := newFakeClock(base)
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	changes, cancel := tracker.Changes()
	defer cancel()

	// Even an offline first record is an edge out of the unknown state.
	tracker.Observe(models.DeviceStatus{Status: models.StatusOffline, Timestamp: base.UnixMilli()})
	require.Equal(t, false, <-changes)
}

func TestTrackerActiveExpiry(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	clock := newFakeClock(base)
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	tracker.Start()
	defer tracker.Stop()

	changes, cancel := tracker.Changes()
	defer cancel()

	tracker.Observe(onlineAt(base))
	require.Equal(t, true, <-changes)

	// The peer goes silent; the expiry tick flips liveness without any
	// new inbound record.
	clock.Set(base.Add(31 * time.Second))
	clock.tick <- clock.Now()

	select {
	case v := <-changes:
		assert.False(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an offline event from expiry")
	}
}

func TestTrackerExpiryWithoutRecordStaysQuiet(t *testing.T) {
	clock := newFakeClock(time.UnixMilli(1700000000000))
	tracker := NewTracker(30*time.Second, clock, logger.NewTestLogger())

	tracker.Start()
	defer tracker.Stop()

	changes, cancel := tracker.Changes()
	defer cancel()

	clock.tick <- clock.Now()

	select {
	case v := <-changes:
		t.Fatalf("unexpected event %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTrackerDefaults(t *testing.T) {
	tracker := NewTracker(0, nil, logger.NewTestLogger())
	assert.Equal(t, DefaultStalenessWindow, tracker.window)
	assert.False(t, tracker.IsLive())
}

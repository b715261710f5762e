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

// Package geoloc abstracts the source of GPS fixes consumed by the bridge.
package geoloc

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotSupported = errors.New("geolocation not supported")
	ErrAccessDenied = errors.New("geolocation access denied")
	ErrUnavailable  = errors.New("geolocation position unavailable")
	ErrTimeout      = errors.New("geolocation timeout")
)

// Position is a GPS fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// Provider supplies GPS fixes. Implementations must not block the
// caller's message-handling path; Current honors ctx cancellation.
type Provider interface {
	// Current returns the most recent fix, failing with one of the
	// package sentinel errors.
	Current(ctx context.Context) (Position, error)

	// Watch invokes fn for every new fix until the returned stop func is
	// called or ctx is cancelled.
	Watch(ctx context.Context, fn func(Position)) (stop func(), err error)
}

// StaticProvider always reports the same fix. Useful for bench rigs and
// tests.
type StaticProvider struct {
	Position Position
}

func (s *StaticProvider) Current(_ context.Context) (Position, error) {
	return s.Position, nil
}

func (s *StaticProvider) Watch(_ context.Context, fn func(Position)) (func(), error) {
	fn(s.Position)
	return func() {}, nil
}

// FuncProvider adapts a fetch function into a Provider. Watch polls the
// function at the configured interval.
type FuncProvider struct {
	Fetch    func(ctx context.Context) (Position, error)
	Interval time.Duration
}

func (f *FuncProvider) Current(ctx context.Context) (Position, error) {
	if f.Fetch == nil {
		return Position{}, ErrNotSupported
	}

	return f.Fetch(ctx)
}

func (f *FuncProvider) Watch(ctx context.Context, fn func(Position)) (func(), error) {
	if f.Fetch == nil {
		return nil, ErrNotSupported
	}

	interval := f.Interval
	if interval <= 0 {
		interval = time.Second
	}

	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				if pos, err := f.Fetch(watchCtx); err == nil {
					fn(pos)
				}
			}
		}
	}()

	return cancel, nil
}

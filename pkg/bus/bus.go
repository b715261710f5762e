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

// Package bus provides a minimal in-process fan-out for typed events, so
// components can support multiple independent subscribers instead of a
// single callback slot.
package bus

import "sync"

const defaultBuffer = 16

// Bus fans events of type T out to every subscriber. Publish never blocks:
// a subscriber that falls more than a buffer's worth behind loses events.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new subscriber. The returned cancel func removes
// the subscription and closes its channel; it is safe to call twice.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan T, defaultBuffer)
	b.subs[id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish delivers ev to all current subscribers without blocking.
func (b *Bus[T]) Publish(ev T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close removes and closes all subscriptions.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

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

// Package mqttsession manages the single logical broker connection of the
// device-link bridge: connect, subscribe, publish, disconnect, and the
// bounded initial-connect retry.
package mqttsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imeuro/micronav-alpha/pkg/bus"
	"github.com/imeuro/micronav-alpha/pkg/logger"
	"github.com/imeuro/micronav-alpha/pkg/models"
)

// State is the session connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Inbound is a received message, delivered to subscribers after the
// payload has been checked to be well-formed JSON.
type Inbound struct {
	Topic   string
	Payload []byte
}

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultKeepAlive       = 60 * time.Second
	defaultReconnectPeriod = 5 * time.Second
	defaultRetryBaseDelay  = 2 * time.Second
	defaultRetryMaxRetries = 3
	disconnectQuiesce      = 250 * time.Millisecond

	clientName = "app"
)

// Config configures a Session.
type Config struct {
	BrokerURL       string          `json:"broker_url"`
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	DeviceID        string          `json:"device_id"`
	ConnectTimeout  models.Duration `json:"connect_timeout"`
	KeepAlive       models.Duration `json:"keepalive"`
	ReconnectPeriod models.Duration `json:"reconnect_period"`
	RetryBaseDelay  models.Duration `json:"retry_base_delay"`
	RetryMaxRetries int             `json:"retry_max_attempts"`
}

func (c *Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}

	return time.Duration(c.ConnectTimeout)
}

func (c *Config) keepAlive() time.Duration {
	if c.KeepAlive <= 0 {
		return defaultKeepAlive
	}

	return time.Duration(c.KeepAlive)
}

func (c *Config) reconnectPeriod() time.Duration {
	if c.ReconnectPeriod <= 0 {
		return defaultReconnectPeriod
	}

	return time.Duration(c.ReconnectPeriod)
}

func (c *Config) retryBaseDelay() time.Duration {
	if c.RetryBaseDelay <= 0 {
		return defaultRetryBaseDelay
	}

	return time.Duration(c.RetryBaseDelay)
}

func (c *Config) retryMaxRetries() int {
	if c.RetryMaxRetries <= 0 {
		return defaultRetryMaxRetries
	}

	return c.RetryMaxRetries
}

// Session owns exactly one logical broker connection. All state mutation
// is serialized behind one mutex; publishes are fire-and-forget after a
// connected-state check.
type Session struct {
	config  Config
	topics  Topics
	factory TransportFactory
	logger  logger.Logger

	mu            sync.Mutex
	state         State
	transport     Transport
	wantConnected bool

	states   *bus.Bus[State]
	messages *bus.Bus[Inbound]

	// sleep is swapped out by tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSession creates a Session. A nil factory uses the paho transport.
func NewSession(config Config, factory TransportFactory, log logger.Logger) *Session {
	if factory == nil {
		factory = NewPahoTransport
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Session{
		config:   config,
		topics:   Topics{DeviceID: config.DeviceID},
		factory:  factory,
		logger:   log,
		states:   bus.New[State](),
		messages: bus.New[Inbound](),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Topics exposes the topic table bound to the configured device ID.
func (s *Session) Topics() Topics {
	return s.topics
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// IsConnected reports whether the session is currently connected.
func (s *Session) IsConnected() bool {
	return s.State() == Connected
}

// StateChanges returns a subscription delivering connection-state events.
func (s *Session) StateChanges() (<-chan State, func()) {
	return s.states.Subscribe()
}

// Messages returns a subscription delivering inbound messages.
func (s *Session) Messages() (<-chan Inbound, func()) {
	return s.messages.Subscribe()
}

// Connect establishes the broker connection. It is idempotent: when
// already connected it returns nil immediately. A concurrent attempt
// returns ErrConnectInProgress.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case Connected:
		s.mu.Unlock()
		return nil
	case Connecting, Reconnecting:
		s.mu.Unlock()
		return ErrConnectInProgress
	case Disconnected:
	}

	s.wantConnected = true
	transport := s.factory(s.connectOptions())
	s.transport = transport
	s.setStateLocked(Connecting)
	s.mu.Unlock()

	err := transport.Connect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.transport = nil
		s.setStateLocked(Disconnected)

		s.logger.Error().Err(err).Str("broker", s.config.BrokerURL).Msg("MQTT connect failed")

		return err
	}

	// Disconnect raced the connect attempt; honor the disconnect intent.
	if !s.wantConnected {
		transport.Disconnect(disconnectQuiesce)
		s.transport = nil
		s.setStateLocked(Disconnected)

		return nil
	}

	s.setStateLocked(Connected)

	if err := s.afterConnectLocked(transport); err != nil {
		s.logger.Warn().Err(err).Msg("Post-connect setup incomplete")
	}

	return nil
}

// ConnectWithRetry runs Connect and, on failure, the bounded exponential
// retry: base delay doubling each attempt, up to maxRetries attempts.
// Disconnecting (or cancelling ctx) mid-backoff halts further retries.
func (s *Session) ConnectWithRetry(ctx context.Context) error {
	err := s.Connect(ctx)
	if err == nil {
		return nil
	}

	base := s.config.retryBaseDelay()
	maxRetries := s.config.retryMaxRetries()

	for attempt := 1; attempt <= maxRetries; attempt++ {
		delay := base << (attempt - 1)

		s.logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", maxRetries).
			Dur("delay", delay).
			Msg("Retrying MQTT connection")

		if err = s.sleep(ctx, delay); err != nil {
			return err
		}

		// Check connection intent before each retry fire: a disconnect
		// during backoff halts the loop.
		s.mu.Lock()
		intact := s.wantConnected
		s.mu.Unlock()

		if !intact {
			return ErrRetryAborted
		}

		if err = s.Connect(ctx); err == nil {
			return nil
		}
	}

	s.logger.Error().Err(err).Int("attempts", maxRetries).Msg("MQTT connection retries exhausted")

	return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

// Disconnect best-effort publishes a retained offline status, then tears
// the transport down. It never fails and is safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wantConnected = false

	if s.transport == nil {
		s.setStateLocked(Disconnected)
		return
	}

	if s.state == Connected {
		if payload, err := json.Marshal(s.statusMessage(models.StatusOffline)); err == nil {
			if err := s.transport.Publish(s.topics.AppStatus(), 1, true, payload); err != nil {
				s.logger.Warn().Err(err).Msg("Offline status publish failed during disconnect")
			}
		}
	}

	s.transport.Disconnect(disconnectQuiesce)
	s.transport = nil
	s.setStateLocked(Disconnected)

	s.logger.Info().Msg("Disconnected from MQTT broker")
}

// Publish serializes payload to JSON and publishes it. It returns false
// when the session is not connected (nothing is queued) or serialization
// fails; it never blocks on broker acknowledgment.
func (s *Session) Publish(topic string, payload interface{}, qos byte, retain bool) bool {
	s.mu.Lock()
	transport := s.transport
	connected := s.state == Connected
	s.mu.Unlock()

	if !connected || transport == nil {
		s.logger.Warn().Str("topic", topic).Msg("Publish skipped: not connected")
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Payload serialization failed")
		return false
	}

	if err := transport.Publish(topic, qos, retain, data); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Publish failed")
		return false
	}

	s.logger.Debug().Str("topic", topic).Int("bytes", len(data)).Msg("Published message")

	return true
}

func (s *Session) connectOptions() ConnectOptions {
	will, _ := json.Marshal(s.statusMessage(models.StatusOffline))

	return ConnectOptions{
		BrokerURL:       s.config.BrokerURL,
		ClientID:        newClientID(),
		Username:        s.config.Username,
		Password:        s.config.Password,
		KeepAlive:       s.config.keepAlive(),
		ConnectTimeout:  s.config.connectTimeout(),
		ReconnectPeriod: s.config.reconnectPeriod(),
		Will: &Will{
			Topic:   s.topics.AppStatus(),
			Payload: will,
			QoS:     1,
			Retain:  true,
		},
		OnConnectionLost: s.onConnectionLost,
		OnReconnecting:   s.onReconnecting,
		OnResumed:        s.onResumed,
	}
}

// newClientID derives a unique client identifier from the current time,
// with a random suffix so two sessions started in the same millisecond
// cannot collide.
func newClientID() string {
	return fmt.Sprintf("micronav-app-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (s *Session) statusMessage(status string) models.StatusMessage {
	return models.StatusMessage{
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
		Client:    clientName,
	}
}

// afterConnectLocked performs the post-connect protocol: subscribe to the
// device topics, announce the app as online (retained), and ask the
// device to re-publish its status. The connections snapshot arrives on
// its own retained topic, so subscribing is enough to request it.
func (s *Session) afterConnectLocked(transport Transport) error {
	for _, topic := range s.topics.Subscriptions() {
		if err := transport.Subscribe(topic, 1, s.handleInbound); err != nil {
			return err
		}

		s.logger.Debug().Str("topic", topic).Msg("Subscribed")
	}

	online, err := json.Marshal(s.statusMessage(models.StatusOnline))
	if err != nil {
		return err
	}

	if err := transport.Publish(s.topics.AppStatus(), 1, true, online); err != nil {
		return err
	}

	request, err := json.Marshal(models.StatusRequest{
		Request:   "status",
		Timestamp: time.Now().UnixMilli(),
		Client:    clientName,
	})
	if err != nil {
		return err
	}

	if err := transport.Publish(s.topics.DeviceStatusRequest(), 1, false, request); err != nil {
		return err
	}

	s.logger.Info().Str("broker", s.config.BrokerURL).Msg("Connected to MQTT broker")

	return nil
}

// handleInbound runs on the transport callback goroutine. Malformed
// payloads are dropped with a warning, never propagated.
func (s *Session) handleInbound(msg Message) {
	if !json.Valid(msg.Payload()) {
		s.logger.Warn().Str("topic", msg.Topic()).Msg("Dropping malformed inbound payload")
		return
	}

	s.messages.Publish(Inbound{Topic: msg.Topic(), Payload: msg.Payload()})
}

func (s *Session) onConnectionLost(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected {
		return
	}

	s.logger.Warn().Err(err).Msg("MQTT connection lost")
	s.setStateLocked(Reconnecting)
}

func (s *Session) onReconnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Connected {
		s.setStateLocked(Reconnecting)
	}
}

// onResumed fires when the transport's own reconnect succeeds. The first
// connect is acknowledged through Connect itself and skipped here.
func (s *Session) onResumed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reconnecting {
		return
	}

	s.setStateLocked(Connected)

	if s.transport != nil {
		if err := s.afterConnectLocked(s.transport); err != nil {
			s.logger.Warn().Err(err).Msg("Post-reconnect setup incomplete")
		}
	}
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}

	s.state = state
	s.states.Publish(state)
}

// Close releases the event subscriptions after disconnecting.
func (s *Session) Close() {
	s.Disconnect()
	s.states.Close()
	s.messages.Close()
}

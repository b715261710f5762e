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

// Package bridge is the application facade of the device link: it turns
// high-level operations (send route, clear route, send GPS fix) into wire
// messages and reacts to inbound device traffic.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imeuro/micronav-alpha/pkg/bus"
	"github.com/imeuro/micronav-alpha/pkg/codec"
	"github.com/imeuro/micronav-alpha/pkg/geoloc"
	"github.com/imeuro/micronav-alpha/pkg/liveness"
	"github.com/imeuro/micronav-alpha/pkg/logger"
	"github.com/imeuro/micronav-alpha/pkg/models"
	"github.com/imeuro/micronav-alpha/pkg/mqttsession"
)

const positionFetchTimeout = 10 * time.Second

var (
	errNoRouteSource = errors.New("no route source configured")
	errNoPosition    = errors.New("no position available for route origin")
)

// RouteSource computes device-bound routes from street addresses.
// *directions.Client satisfies it.
type RouteSource interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (models.Coordinates, error)
	Route(ctx context.Context, origin, destination models.Coordinates, profile, language string) (*models.RouteData, error)
}

// Bridge composes the session, codec, and liveness tracker behind the
// operations the application calls. All dependencies are injected; the
// bridge never reaches into ambient global state.
type Bridge struct {
	config   Config
	session  *mqttsession.Session
	tracker  *liveness.Tracker
	position geoloc.Provider
	routes   RouteSource
	clock    Clock
	logger   logger.Logger
	topics   mqttsession.Topics

	mu              sync.Mutex
	lastRoute       *models.RouteData
	lastConnections *models.DeviceConnections
	lastPosition    *geoloc.Position

	connections *bus.Bus[models.DeviceConnections]

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
}

// New creates a Bridge. A nil transport factory selects the production
// MQTT transport; a nil clock selects the real clock; position and routes
// may be nil when no GPS source or routing backend exists.
func New(
	config Config,
	factory mqttsession.TransportFactory,
	position geoloc.Provider,
	routes RouteSource,
	clock Clock,
	log logger.Logger,
) *Bridge {
	if clock == nil {
		clock = realClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	session := mqttsession.NewSession(config.MQTT, factory, log)

	return &Bridge{
		config:      config,
		session:     session,
		tracker:     liveness.NewTracker(config.stalenessWindow(), nil, log),
		position:    position,
		routes:      routes,
		clock:       clock,
		logger:      log,
		topics:      session.Topics(),
		connections: bus.New[models.DeviceConnections](),
	}
}

// Session exposes the underlying session for state subscriptions.
func (b *Bridge) Session() *mqttsession.Session {
	return b.session
}

// PeerLive reports whether the device currently counts as online.
func (b *Bridge) PeerLive() bool {
	return b.tracker.IsLive()
}

// PeerLivenessChanges returns an edge-triggered liveness subscription.
func (b *Bridge) PeerLivenessChanges() (<-chan bool, func()) {
	return b.tracker.Changes()
}

// ConnectionsChanges returns a subscription for device connectivity
// snapshots.
func (b *Bridge) ConnectionsChanges() (<-chan models.DeviceConnections, func()) {
	return b.connections.Subscribe()
}

// LastConnections returns the most recent connectivity snapshot, if any.
func (b *Bridge) LastConnections() *models.DeviceConnections {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastConnections == nil {
		return nil
	}

	snapshot := *b.lastConnections

	return &snapshot
}

// Start launches the inbound dispatcher, the liveness tracker, and the
// position republish loop. It does not connect; call Connect after.
func (b *Bridge) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		b.cancel = cancel

		b.tracker.Start()

		messages, cancelMessages := b.session.Messages()
		states, cancelStates := b.session.StateChanges()

		b.wg.Add(1)

		go func() {
			defer b.wg.Done()
			defer cancelMessages()
			defer cancelStates()

			b.run(runCtx, messages, states)
		}()
	})
}

// Connect establishes the broker connection with the bounded retry.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.session.ConnectWithRetry(ctx)
}

// Stop disconnects and halts all background work.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}

	b.session.Close()
	b.wg.Wait()
	b.tracker.Stop()
	b.connections.Close()
}

// run is the single dispatcher goroutine: inbound messages, connection
// state edges, and the periodic position timer all funnel through it, so
// repeated connect/disconnect cycles can never stack duplicate timers.
func (b *Bridge) run(ctx context.Context, messages <-chan mqttsession.Inbound, states <-chan mqttsession.State) {
	var posTicker Ticker

	var posChan <-chan time.Time

	stopTimer := func() {
		if posTicker != nil {
			posTicker.Stop()
			posTicker = nil
			posChan = nil
		}
	}
	defer stopTimer()

	if b.session.IsConnected() {
		posTicker = b.clock.Ticker(b.config.positionInterval())
		posChan = posTicker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			b.handleMessage(msg)
		case state, ok := <-states:
			if !ok {
				return
			}

			switch state {
			case mqttsession.Connected:
				stopTimer()
				posTicker = b.clock.Ticker(b.config.positionInterval())
				posChan = posTicker.Chan()
			case mqttsession.Disconnected, mqttsession.Reconnecting, mqttsession.Connecting:
				stopTimer()
			}
		case <-posChan:
			// The fetch can suspend; keep it off the dispatch path.
			b.wg.Add(1)

			go func() {
				defer b.wg.Done()
				b.republishPosition(ctx)
			}()
		}
	}
}

// SendRoute encodes and publishes a route (retained, QoS 1) and remembers
// it for request_route replays. Returns false when not connected or the
// route is empty.
func (b *Bridge) SendRoute(rd *models.RouteData) bool {
	if rd == nil || rd.Route == nil {
		b.logger.Warn().Msg("No route available to send")
		return false
	}

	msg := codec.EncodeRoute(rd, b.clock.Now())

	if !b.session.Publish(b.topics.DeviceRouteData(), msg, 1, true) {
		return false
	}

	b.mu.Lock()
	b.lastRoute = rd
	b.mu.Unlock()

	b.logger.Info().
		Int("steps", len(msg.Steps)).
		Int("total_distance", msg.TotalDistance).
		Msg("Route sent to device")

	return true
}

// NavigateTo geocodes destination, computes a route from the current
// GPS fix, and sends it to the device. The computed route is returned so
// the caller can drive step announcements from it.
func (b *Bridge) NavigateTo(ctx context.Context, destination string) (*models.RouteData, error) {
	if b.routes == nil {
		return nil, errNoRouteSource
	}

	dest, err := b.routes.Geocode(ctx, destination)
	if err != nil {
		return nil, err
	}

	origin, err := b.routeOrigin(ctx)
	if err != nil {
		return nil, err
	}

	rd, err := b.routes.Route(ctx, origin, dest, "", "")
	if err != nil {
		return nil, err
	}

	if !b.SendRoute(rd) {
		b.logger.Warn().Str("destination", dest.Address).Msg("Route computed but not delivered")
	}

	return rd, nil
}

// routeOrigin resolves the route starting point: the provider's current
// fix when one is available, otherwise the last remembered fix. The
// origin address comes from reverse geocoding, best effort.
func (b *Bridge) routeOrigin(ctx context.Context) (models.Coordinates, error) {
	var (
		pos   geoloc.Position
		known bool
	)

	if b.position != nil {
		if p, err := b.position.Current(ctx); err == nil {
			b.rememberPosition(p)

			pos, known = p, true
		}
	}

	if !known {
		b.mu.Lock()
		last := b.lastPosition
		b.mu.Unlock()

		if last == nil {
			return models.Coordinates{}, errNoPosition
		}

		pos = *last
	}

	origin, err := b.routes.ReverseGeocode(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		return models.Coordinates{
			Lat:     pos.Latitude,
			Lng:     pos.Longitude,
			Address: fmt.Sprintf("%f, %f", pos.Latitude, pos.Longitude),
		}, nil
	}

	return origin, nil
}

// ClearRoute publishes the retained route-aborted sentinel regardless of
// prior route state.
func (b *Bridge) ClearRoute() bool {
	msg := codec.EncodeClearRoute(b.clock.Now())

	if !b.session.Publish(b.topics.DeviceRouteData(), msg, 1, true) {
		return false
	}

	b.mu.Lock()
	b.lastRoute = nil
	b.mu.Unlock()

	b.logger.Info().Msg("Route cleared on device")

	return true
}

// SendGPSPosition publishes a GPS fix at QoS 0; stale fixes are supplanted
// quickly, so loss is tolerable.
func (b *Bridge) SendGPSPosition(lat, lng, accuracy float64) bool {
	msg := models.PositionMessage{
		Type:      models.MessageTypePosition,
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		Timestamp: b.clock.Now().UnixMilli(),
	}

	return b.session.Publish(b.topics.AppPosition(), msg, 0, false)
}

// SendNavigationStep publishes the step-advance message for the 0-based
// step index.
func (b *Bridge) SendNavigationStep(index int, rd *models.RouteData) bool {
	if rd == nil {
		return false
	}

	msg, ok := codec.EncodeNavigationStep(index, rd, b.clock.Now())
	if !ok {
		return false
	}

	return b.session.Publish(b.topics.DeviceRouteStep(), msg, 1, false)
}

// SendTestMessage publishes a connectivity probe.
func (b *Bridge) SendTestMessage() bool {
	msg := models.TestMessage{
		Type:      models.MessageTypeTest,
		Message:   "Test from app",
		Timestamp: b.clock.Now().UnixMilli(),
		Client:    "app",
	}

	return b.session.Publish(b.topics.DeviceTest(), msg, 1, false)
}

// SendCommand publishes a named command to the device.
func (b *Bridge) SendCommand(name string) bool {
	return b.session.Publish(b.topics.DeviceCommands(), models.OutboundCommand{Command: name}, 1, false)
}

func (b *Bridge) handleMessage(msg mqttsession.Inbound) {
	switch msg.Topic {
	case b.topics.DeviceCommands():
		b.handleCommand(msg.Payload)
	case b.topics.DeviceStatus():
		b.handleDeviceStatus(msg.Payload)
	case b.topics.DeviceConnections():
		b.handleDeviceConnections(msg.Payload)
	case b.topics.DeviceSystemInfo():
		b.logger.Debug().RawJSON("info", msg.Payload).Msg("Device system info")
	default:
		b.logger.Debug().Str("topic", msg.Topic).Msg("Unhandled topic")
	}
}

func (b *Bridge) handleCommand(payload []byte) {
	var cmd models.CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed command")
		return
	}

	switch cmd.Type {
	case models.CommandRequestRoute:
		b.mu.Lock()
		route := b.lastRoute
		b.mu.Unlock()

		if route != nil {
			b.SendRoute(route)
		} else {
			b.logger.Debug().Msg("Route requested but none is known")
		}
	case models.CommandRequestPosition:
		// Fetching the fix can suspend; keep it off the dispatch path.
		b.wg.Add(1)

		go func() {
			defer b.wg.Done()
			b.replyWithPosition()
		}()
	default:
		b.logger.Debug().Str("type", cmd.Type).Msg("Unrecognized device command")
	}
}

func (b *Bridge) replyWithPosition() {
	if b.position == nil {
		b.logger.Warn().Msg("Position requested but no provider is configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), positionFetchTimeout)
	defer cancel()

	pos, err := b.position.Current(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Position fetch failed")
		return
	}

	b.rememberPosition(pos)
	b.SendGPSPosition(pos.Latitude, pos.Longitude, pos.Accuracy)
}

func (b *Bridge) handleDeviceStatus(payload []byte) {
	var status models.DeviceStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed device status")
		return
	}

	if status.Status == "" || status.Timestamp == 0 {
		// Invalid record: the device counts as offline, matching how an
		// empty retained message is treated.
		b.tracker.Observe(models.DeviceStatus{Status: models.StatusOffline})
		return
	}

	b.tracker.Observe(status)
}

func (b *Bridge) handleDeviceConnections(payload []byte) {
	var snapshot models.DeviceConnections
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed connections snapshot")
		return
	}

	b.mu.Lock()
	b.lastConnections = &snapshot
	b.mu.Unlock()

	b.connections.Publish(snapshot)

	b.logger.Debug().
		Bool("wifi", snapshot.WiFi).
		Bool("mqtt", snapshot.MQTT).
		Bool("gps", snapshot.GPS).
		Msg("Device connections snapshot")
}

func (b *Bridge) rememberPosition(pos geoloc.Position) {
	b.mu.Lock()
	b.lastPosition = &pos
	b.mu.Unlock()
}

// republishPosition periodically re-announces the current fix so the
// device keeps receiving updates even when nothing moves.
func (b *Bridge) republishPosition(ctx context.Context) {
	if b.position == nil || !b.session.IsConnected() {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, positionFetchTimeout)
	defer cancel()

	pos, err := b.position.Current(fetchCtx)
	if err != nil {
		b.mu.Lock()
		last := b.lastPosition
		b.mu.Unlock()

		if last == nil {
			b.logger.Debug().Err(err).Msg("Periodic position fetch failed")
			return
		}

		pos = *last
	}

	b.rememberPosition(pos)
	b.SendGPSPosition(pos.Latitude, pos.Longitude, pos.Accuracy)
}

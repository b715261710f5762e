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

package mqttsession

import (
	"context"
	"time"
)

// Message is an inbound transport message.
type Message interface {
	Topic() string
	Payload() []byte
}

// MessageHandler consumes inbound messages on a subscribed topic.
type MessageHandler func(msg Message)

// Will is the broker-delivered last-will message.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// ConnectOptions carries everything a transport needs to establish a
// broker connection.
type ConnectOptions struct {
	BrokerURL       string
	ClientID        string
	Username        string
	Password        string
	KeepAlive       time.Duration
	ConnectTimeout  time.Duration
	ReconnectPeriod time.Duration
	Will            *Will

	// Transport lifecycle callbacks. OnConnectionLost and OnResumed fire
	// on the transport's own reconnect cycle, after the initial connect
	// has succeeded once.
	OnConnectionLost func(err error)
	OnReconnecting   func()
	OnResumed        func()
}

// Transport is the platform abstraction over an MQTT client. The session
// core never touches the concrete client, so it carries no environment
// conditionals.
type Transport interface {
	// Connect blocks until the broker acknowledges the connection, the
	// configured timeout elapses, or ctx is cancelled.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down, allowing quiesce time for
	// in-flight messages. It must not fail.
	Disconnect(quiesce time.Duration)

	// Publish sends a payload. It does not wait for broker acknowledgment
	// beyond the QoS semantics of the underlying client.
	Publish(topic string, qos byte, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	IsConnected() bool
}

// TransportFactory builds a fresh Transport for one connection attempt.
type TransportFactory func(opts ConnectOptions) Transport

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
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultSubscribeTimeout = 5 * time.Second

// pahoTransport adapts eclipse/paho.mqtt.golang to the Transport interface.
type pahoTransport struct {
	client  mqtt.Client
	timeout time.Duration
}

// NewPahoTransport is the production TransportFactory.
func NewPahoTransport(opts ConnectOptions) Transport {
	co := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetCleanSession(true).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(opts.ReconnectPeriod)

	if opts.Will != nil {
		co.SetBinaryWill(opts.Will.Topic, opts.Will.Payload, opts.Will.QoS, opts.Will.Retain)
	}

	if opts.OnConnectionLost != nil {
		co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			opts.OnConnectionLost(err)
		})
	}

	if opts.OnReconnecting != nil {
		co.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			opts.OnReconnecting()
		})
	}

	if opts.OnResumed != nil {
		co.SetOnConnectHandler(func(_ mqtt.Client) {
			opts.OnResumed()
		})
	}

	return &pahoTransport{
		client:  mqtt.NewClient(co),
		timeout: opts.ConnectTimeout,
	}
}

func (p *pahoTransport) Connect(_ context.Context) error {
	token := p.client.Connect()

	if !token.WaitTimeout(p.timeout) {
		p.client.Disconnect(0)
		return ErrConnectTimeout
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	return nil
}

func (p *pahoTransport) Disconnect(quiesce time.Duration) {
	p.client.Disconnect(uint(quiesce.Milliseconds())) //nolint:gosec // quiesce is a small bounded duration
}

func (p *pahoTransport) Publish(topic string, qos byte, retain bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retain, payload)

	// Fire-and-forget: QoS handling is the client's job. Surface only
	// errors that are already known when the call returns.
	if err := token.Error(); err != nil {
		return err
	}

	return nil
}

func (p *pahoTransport) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := p.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(pahoMessage{msg})
	})

	if !token.WaitTimeout(defaultSubscribeTimeout) {
		return fmt.Errorf("%w: timeout on %s", errSubscribeFailed, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", errSubscribeFailed, err)
	}

	return nil
}

func (p *pahoTransport) IsConnected() bool {
	return p.client.IsConnected()
}

type pahoMessage struct {
	msg mqtt.Message
}

func (m pahoMessage) Topic() string   { return m.msg.Topic() }
func (m pahoMessage) Payload() []byte { return m.msg.Payload() }

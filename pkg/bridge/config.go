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

package bridge

import (
	"errors"
	"os"
	"time"

	"github.com/imeuro/micronav-alpha/pkg/logger"
	"github.com/imeuro/micronav-alpha/pkg/models"
	"github.com/imeuro/micronav-alpha/pkg/mqttsession"
)

const (
	defaultStalenessWindow  = 30 * time.Second
	defaultPositionInterval = 10 * time.Second
)

var (
	errMissingBrokerURL = errors.New("mqtt.broker_url is required")
	errMissingDeviceID  = errors.New("mqtt.device_id is required")
)

// Config is the bridge daemon configuration.
type Config struct {
	MQTT             mqttsession.Config `json:"mqtt"`
	StalenessWindow  models.Duration    `json:"staleness_window"`
	PositionInterval models.Duration    `json:"position_interval"`
	MapboxToken      string             `json:"mapbox_token"`
	Logging          *logger.Config     `json:"logging"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return errMissingBrokerURL
	}

	if c.MQTT.DeviceID == "" {
		return errMissingDeviceID
	}

	return nil
}

// ApplyEnvOverrides implements config.EnvOverrider: secrets can come from
// the environment instead of the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}

	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}

	if v := os.Getenv("MAPBOX_TOKEN"); v != "" {
		c.MapboxToken = v
	}
}

func (c *Config) stalenessWindow() time.Duration {
	if c.StalenessWindow <= 0 {
		return defaultStalenessWindow
	}

	return time.Duration(c.StalenessWindow)
}

func (c *Config) positionInterval() time.Duration {
	if c.PositionInterval <= 0 {
		return defaultPositionInterval
	}

	return time.Duration(c.PositionInterval)
}

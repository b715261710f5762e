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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSettings struct {
	BrokerURL string `json:"broker_url"`
	Username  string `json:"username"`

	validateErr error
}

func (s *testSettings) Validate() error {
	return s.validateErr
}

func (s *testSettings) ApplyEnvOverrides() {
	if v := os.Getenv("TEST_CONFIG_USERNAME"); v != "" {
		s.Username = v
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfigFile(t, `{"broker_url": "wss://broker.example:8884/mqtt", "username": "file-user"}`)

	var settings testSettings

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &settings))
	assert.Equal(t, "wss://broker.example:8884/mqtt", settings.BrokerURL)
	assert.Equal(t, "file-user", settings.Username)
}

func TestLoadAndValidateEnvOverride(t *testing.T) {
	t.Setenv("TEST_CONFIG_USERNAME", "env-user")

	path := writeConfigFile(t, `{"broker_url": "wss://broker.example:8884/mqtt", "username": "file-user"}`)

	var settings testSettings

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &settings))
	assert.Equal(t, "env-user", settings.Username)
}

func TestLoadAndValidateValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `{"broker_url": ""}`)

	settings := testSettings{validateErr: errors.New("broker_url is required")}

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &settings)
	require.ErrorIs(t, err, errLoadConfigFailed)
	assert.Contains(t, err.Error(), "broker_url is required")
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var settings testSettings

	err := NewConfig(nil).LoadAndValidate(context.Background(), "/nonexistent/config.json", &settings)
	require.ErrorIs(t, err, errLoadConfigFailed)
}

func TestLoadAndValidateMalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)

	var settings testSettings

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &settings)
	require.ErrorIs(t, err, errLoadConfigFailed)
}

func TestLoadAndValidateRejectsNonPointer(t *testing.T) {
	err := NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", testSettings{})
	require.ErrorIs(t, err, errInvalidConfigPtr)

	var nilDst *testSettings

	err = NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", nilDst)
	require.ErrorIs(t, err, errInvalidConfigPtr)
}

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

package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imeuro/micronav-alpha/pkg/models"
)

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/geocoding/v5/mapbox.places/")
		assert.Contains(t, r.URL.Path, "Piazza Duomo")
		assert.Equal(t, "pk.test", r.URL.Query().Get("access_token"))
		assert.Equal(t, "IT", r.URL.Query().Get("country"))
		assert.Equal(t, "it", r.URL.Query().Get("language"))

		_, _ = w.Write([]byte(`{
			"features": [
				{"center": [9.1919, 45.4642], "place_name": "Piazza del Duomo, Milano"},
				{"center": [0, 0], "place_name": "ignored"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	coords, err := client.Geocode(context.Background(), "Piazza Duomo")
	require.NoError(t, err)

	assert.Equal(t, 45.4642, coords.Lat)
	assert.Equal(t, 9.1919, coords.Lng)
	assert.Equal(t, "Piazza del Duomo, Milano", coords.Address)
}

func TestGeocodeAddressNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	_, err := client.Geocode(context.Background(), "nowhere at all")
	require.ErrorIs(t, err, ErrAddressNotFound)
}

func TestGeocodeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("pk.bad", WithBaseURL(server.URL))

	_, err := client.Geocode(context.Background(), "Piazza Duomo")
	require.ErrorIs(t, err, ErrGeocode)
}

func TestReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The path carries (lng, lat).
		assert.True(t, strings.Contains(r.URL.Path, "9.19"), "path: %s", r.URL.Path)

		_, _ = w.Write([]byte(`{"features": [{"center": [9.1919, 45.4642], "place_name": "Via Torino, Milano"}]}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	coords, err := client.ReverseGeocode(context.Background(), 45.4642, 9.1919)
	require.NoError(t, err)
	assert.Equal(t, "Via Torino, Milano", coords.Address)
	assert.Equal(t, 45.4642, coords.Lat)
}

func TestReverseGeocodeFallsBackToCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	coords, err := client.ReverseGeocode(context.Background(), 45.4642, 9.1919)
	require.NoError(t, err)
	assert.Equal(t, "45.464200, 9.191900", coords.Address)
}

func TestRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/directions/v5/mapbox/driving/")

		query := r.URL.Query()
		assert.Equal(t, "geojson", query.Get("geometries"))
		assert.Equal(t, "full", query.Get("overview"))
		assert.Equal(t, "true", query.Get("steps"))
		assert.Equal(t, "it", query.Get("language"))
		assert.Equal(t, "duration,distance", query.Get("annotations"))

		_, _ = w.Write([]byte(`{
			"routes": [{
				"distance": 5420.5,
				"duration": 780,
				"geometry": {"type": "LineString", "coordinates": [[9.19, 45.46], [9.23, 45.53]]},
				"legs": [{
					"distance": 5420.5,
					"duration": 780,
					"steps": [{
						"distance": 5420.5,
						"duration": 780,
						"maneuver": {"type": "depart", "instruction": "Head north"}
					}]
				}]
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	origin := models.Coordinates{Lat: 45.46, Lng: 9.19, Address: "Milano"}
	destination := models.Coordinates{Lat: 45.53, Lng: 9.23, Address: "Sesto San Giovanni"}

	rd, err := client.Route(context.Background(), origin, destination, "", "")
	require.NoError(t, err)

	assert.Equal(t, "driving", rd.Profile)
	assert.Equal(t, "it", rd.Language)
	assert.Equal(t, origin, rd.Origin)
	assert.Equal(t, 5420.5, rd.Route.Distance)
	require.Len(t, rd.Steps(), 1)
	assert.Equal(t, "depart", rd.Steps()[0].Maneuver.Type)
}

func TestRouteNoRouteFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes": []}`))
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	_, err := client.Route(context.Background(),
		models.Coordinates{Lat: 45.46, Lng: 9.19},
		models.Coordinates{Lat: 45.53, Lng: 9.23}, "driving", "it")
	require.ErrorIs(t, err, ErrRouteCalculation)
}

func TestRouteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("pk.test", WithBaseURL(server.URL))

	_, err := client.Route(context.Background(),
		models.Coordinates{Lat: 45.46, Lng: 9.19},
		models.Coordinates{Lat: 45.53, Lng: 9.23}, "driving", "it")
	require.ErrorIs(t, err, ErrRouteCalculation)
}

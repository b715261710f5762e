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

// Package directions is the Mapbox geocoding and routing collaborator.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/imeuro/micronav-alpha/pkg/models"
)

const (
	defaultBaseURL = "https://api.mapbox.com"
	defaultTimeout = 15 * time.Second

	// DefaultProfile is the routing profile used when the caller does not
	// pick one.
	DefaultProfile = "driving"
)

var (
	// ErrRouteCalculation is the single error surfaced to facade callers
	// for any upstream directions failure.
	ErrRouteCalculation = errors.New("route calculation failed")

	// ErrGeocode wraps geocoding transport or status failures.
	ErrGeocode = errors.New("geocoding failed")

	// ErrAddressNotFound indicates the geocoder returned no features.
	ErrAddressNotFound = errors.New("address not found")
)

// Client calls the Mapbox Geocoding and Directions APIs.
type Client struct {
	baseURL    string
	token      string
	country    string
	language   string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRegion sets the geocoding country filter and response language.
func WithRegion(country, language string) Option {
	return func(c *Client) {
		c.country = country
		c.language = language
	}
}

// NewClient creates a Client for the given access token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		country:    "IT",
		language:   "it",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type geocodeFeature struct {
	Center    [2]float64 `json:"center"` // (lng, lat)
	PlaceName string     `json:"place_name"`
}

type geocodeResponse struct {
	Features []geocodeFeature `json:"features"`
}

// Geocode resolves an address to coordinates, first feature wins.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, url.PathEscape(address))

	query := url.Values{}
	query.Set("access_token", c.token)
	query.Set("limit", "1")

	if c.country != "" {
		query.Set("country", c.country)
	}

	if c.language != "" {
		query.Set("language", c.language)
	}

	var resp geocodeResponse
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %w", ErrGeocode, err)
	}

	if len(resp.Features) == 0 {
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrAddressNotFound, address)
	}

	feature := resp.Features[0]

	return models.Coordinates{
		Lat:     feature.Center[1],
		Lng:     feature.Center[0],
		Address: feature.PlaceName,
	}, nil
}

// ReverseGeocode resolves coordinates to an address. When the geocoder
// has no answer the raw coordinates become the address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (models.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json", c.baseURL, lng, lat)

	query := url.Values{}
	query.Set("access_token", c.token)
	query.Set("limit", "1")

	coords := models.Coordinates{
		Lat:     lat,
		Lng:     lng,
		Address: fmt.Sprintf("%f, %f", lat, lng),
	}

	var resp geocodeResponse
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return coords, fmt.Errorf("%w: %w", ErrGeocode, err)
	}

	if len(resp.Features) > 0 {
		coords.Address = resp.Features[0].PlaceName
	}

	return coords, nil
}

type directionsResponse struct {
	Routes []models.Route `json:"routes"`
}

// Route computes an itinerary between two geocoded points. Empty profile
// and language fall back to the client defaults.
func (c *Client) Route(
	ctx context.Context, origin, destination models.Coordinates, profile, language string,
) (*models.RouteData, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	if language == "" {
		language = c.language
	}

	coordinates := fmt.Sprintf("%f,%f;%f,%f", origin.Lng, origin.Lat, destination.Lng, destination.Lat)
	endpoint := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s", c.baseURL, profile, coordinates)

	query := url.Values{}
	query.Set("access_token", c.token)
	query.Set("geometries", "geojson")
	query.Set("overview", "full")
	query.Set("steps", "true")
	query.Set("language", language)
	query.Set("annotations", "duration,distance")

	var resp directionsResponse
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouteCalculation, err)
	}

	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route between %s and %s", ErrRouteCalculation, origin.Address, destination.Address)
	}

	return &models.RouteData{
		Route:       &resp.Routes[0],
		Origin:      origin,
		Destination: destination,
		Profile:     profile,
		Language:    language,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

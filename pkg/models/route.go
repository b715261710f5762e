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

package models

// Coordinates is an application-side geocoded location.
type Coordinates struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Geometry is GeoJSON-shaped line geometry. Coordinates are in upstream
// routing order: (lng, lat).
type Geometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Maneuver mirrors the directions API maneuver object. Location is
// (lng, lat) like the rest of the upstream geometry.
type Maneuver struct {
	Type         string      `json:"type"`
	Modifier     string      `json:"modifier,omitempty"`
	Instruction  string      `json:"instruction"`
	BearingAfter *float64    `json:"bearing_after,omitempty"`
	Location     *[2]float64 `json:"location,omitempty"`
}

// Step is a single routing step as returned by the directions API.
type Step struct {
	Distance float64   `json:"distance"` // meters
	Duration float64   `json:"duration"` // seconds
	Geometry *Geometry `json:"geometry,omitempty"`
	Maneuver *Maneuver `json:"maneuver,omitempty"`
}

// Leg is one origin-to-waypoint segment of a route.
type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
}

// Route is the upstream directions result for one itinerary.
type Route struct {
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Geometry *Geometry `json:"geometry,omitempty"`
	Legs     []Leg     `json:"legs"`
}

// RouteData pairs a computed route with the request that produced it.
type RouteData struct {
	Route       *Route      `json:"route"`
	Origin      Coordinates `json:"origin"`
	Destination Coordinates `json:"destination"`
	Profile     string      `json:"profile"`
	Language    string      `json:"language"`
}

// Steps returns the steps of the first leg, or nil for an empty route.
func (rd *RouteData) Steps() []Step {
	if rd == nil || rd.Route == nil || len(rd.Route.Legs) == 0 {
		return nil
	}

	return rd.Route.Legs[0].Steps
}

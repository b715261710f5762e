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

// Package codec converts application route objects into the wire messages
// the navigation device consumes. All functions are pure.
package codec

import (
	"math"
	"time"

	"github.com/imeuro/micronav-alpha/pkg/models"
)

// SwapAxis converts (lng, lat) geometry to wire-order (lat, lng).
// Applying it twice yields the original sequence.
func SwapAxis(coords [][2]float64) [][2]float64 {
	swapped := make([][2]float64, len(coords))
	for i, c := range coords {
		swapped[i] = [2]float64{c[1], c[0]}
	}

	return swapped
}

// latLngFromLngLat converts a single upstream (lng, lat) point.
func latLngFromLngLat(p [2]float64) *models.LatLng {
	return &models.LatLng{Lat: p[1], Lng: p[0]}
}

func roundMeters(meters float64) int {
	return int(math.Round(meters))
}

func roundMinutes(seconds float64) int {
	return int(math.Round(seconds / 60))
}

// stepEndpoints resolves a step's start and end points with the three-tier
// fallback: own geometry endpoints, the next step's maneuver location, the
// step's own maneuver location. Either result may be nil.
func stepEndpoints(steps []models.Step, index int) (start, end *[2]float64) {
	step := steps[index]

	var geometry [][2]float64
	if step.Geometry != nil {
		geometry = step.Geometry.Coordinates
	}

	var maneuverLocation *[2]float64
	if step.Maneuver != nil {
		maneuverLocation = step.Maneuver.Location
	}

	if len(geometry) > 0 {
		start = &geometry[0]
	} else {
		start = maneuverLocation
	}

	switch {
	case len(geometry) > 0:
		end = &geometry[len(geometry)-1]
	case index < len(steps)-1:
		next := steps[index+1]
		if next.Maneuver != nil {
			end = next.Maneuver.Location
		}
	default:
		end = maneuverLocation
	}

	return start, end
}

func encodeStep(steps []models.Step, index int) models.RouteStep {
	step := steps[index]

	var geometry [][2]float64
	if step.Geometry != nil {
		geometry = step.Geometry.Coordinates
	}

	start, end := stepEndpoints(steps, index)

	coords := models.StepCoordinates{
		Geometry: SwapAxis(geometry),
	}
	if start != nil {
		coords.Start = latLngFromLngLat(*start)
	}

	if end != nil {
		coords.End = latLngFromLngLat(*end)
	}

	encoded := models.RouteStep{
		Distance:    roundMeters(step.Distance),
		Duration:    roundMinutes(step.Duration),
		Icon:        IconUnknown,
		Coordinates: coords,
	}

	if step.Maneuver != nil {
		encoded.Instruction = step.Maneuver.Instruction
		encoded.Icon = ManeuverIcon(step.Maneuver.Type, step.Maneuver.Modifier)
		encoded.Maneuver = models.StepManeuver{
			Type:     step.Maneuver.Type,
			Modifier: step.Maneuver.Modifier,
			Bearing:  step.Maneuver.BearingAfter,
		}
	}

	return encoded
}

// EncodeRoute flattens a route into its wire message. Geometry is emitted
// in (lat, lng) order; missing step geometry falls back to maneuver
// locations via stepEndpoints.
func EncodeRoute(rd *models.RouteData, now time.Time) *models.RouteMessage {
	route := rd.Route

	var routeGeometry [][2]float64
	if route.Geometry != nil {
		routeGeometry = route.Geometry.Coordinates
	}

	steps := rd.Steps()
	encodedSteps := make([]models.RouteStep, len(steps))

	for i := range steps {
		encodedSteps[i] = encodeStep(steps, i)
	}

	return &models.RouteMessage{
		Type:          models.MessageTypeRoute,
		Origin:        rd.Origin.Address,
		OriginCoords:  models.LatLng{Lat: rd.Origin.Lat, Lng: rd.Origin.Lng},
		Destination:   rd.Destination.Address,
		DestCoords:    models.LatLng{Lat: rd.Destination.Lat, Lng: rd.Destination.Lng},
		TotalDistance: roundMeters(route.Distance),
		TotalDuration: int(math.Round(route.Duration)),
		Timestamp:     now.UnixMilli(),
		RouteGeometry: SwapAxis(routeGeometry),
		Steps:         encodedSteps,
	}
}

// EncodeClearRoute builds the sentinel message that tells the device to
// discard any retained route.
func EncodeClearRoute(now time.Time) *models.RouteMessage {
	return &models.RouteMessage{
		Type:          models.MessageTypeRoute,
		Message:       models.RouteAbortedMessage,
		Timestamp:     now.UnixMilli(),
		RouteGeometry: [][2]float64{},
		Steps:         []models.RouteStep{},
	}
}

// EncodeNavigationStep builds the step-advance message for the 0-based
// step index. Returns false when the index is out of range or the route
// has no steps.
func EncodeNavigationStep(index int, rd *models.RouteData, now time.Time) (*models.NavigationStepMessage, bool) {
	steps := rd.Steps()
	if index < 0 || index >= len(steps) {
		return nil, false
	}

	step := steps[index]

	msg := &models.NavigationStepMessage{
		Type:        models.MessageTypeNavigationStep,
		CurrentStep: index + 1,
		TotalSteps:  len(steps),
		Distance:    roundMeters(step.Distance),
		Duration:    roundMinutes(step.Duration),
		Icon:        IconUnknown,
	}

	if step.Maneuver != nil {
		msg.Instruction = step.Maneuver.Instruction
		msg.Icon = ManeuverIcon(step.Maneuver.Type, step.Maneuver.Modifier)
		msg.Bearing = step.Maneuver.BearingAfter
	}

	return msg, true
}

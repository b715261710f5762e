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

// Package models defines the message shapes exchanged with the navigation
// device and the application-side route model they are derived from.
package models

// Status values carried by status and last-will messages.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Message type discriminators.
const (
	MessageTypeRoute          = "route"
	MessageTypePosition       = "position"
	MessageTypeNavigationStep = "navigation_step"
	MessageTypeTest           = "test"
)

// Commands the device may address to the app.
const (
	CommandRequestRoute    = "request_route"
	CommandRequestPosition = "request_position"
)

// RouteAbortedMessage is the sentinel text a clear-route message carries.
const RouteAbortedMessage = "route aborted"

// StatusMessage is published (retained) on the app status topic and used
// as the last-will payload.
type StatusMessage struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Client    string `json:"client,omitempty"`
}

// DeviceStatus is the device's heartbeat record.
type DeviceStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// DeviceConnections is the device's connectivity snapshot. It is replaced
// wholesale on each inbound message, never merged.
type DeviceConnections struct {
	WiFi      bool  `json:"wifi"`
	MQTT      bool  `json:"mqtt"`
	GPS       bool  `json:"gps"`
	GPSHasFix *bool `json:"gps_has_fix,omitempty"`
}

// StatusRequest asks the device to re-publish its current status.
type StatusRequest struct {
	Request   string `json:"request"`
	Timestamp int64  `json:"timestamp"`
	Client    string `json:"client"`
}

// LatLng is a coordinate pair in wire order: latitude first.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteMessage is the flattened route published to the device. Geometry is
// always (lat, lng) on the wire even though the upstream routing geometry
// is (lng, lat).
type RouteMessage struct {
	Type          string       `json:"type"`
	Origin        string       `json:"origin"`
	OriginCoords  LatLng       `json:"originCoords"`
	Destination   string       `json:"destination"`
	DestCoords    LatLng       `json:"destCoords"`
	TotalDistance int          `json:"totalDistance"`
	TotalDuration int          `json:"totalDuration"`
	Timestamp     int64        `json:"timestamp"`
	RouteGeometry [][2]float64 `json:"routeGeometry"`
	Steps         []RouteStep  `json:"steps"`
	Message       string       `json:"message,omitempty"`
}

// RouteStep is a single turn instruction within a RouteMessage.
type RouteStep struct {
	Instruction string          `json:"instruction"`
	Distance    int             `json:"distance"`
	Duration    int             `json:"duration"`
	Maneuver    StepManeuver    `json:"maneuver"`
	Icon        string          `json:"icon"`
	Coordinates StepCoordinates `json:"coordinates"`
}

// StepManeuver is the wire form of a maneuver descriptor.
type StepManeuver struct {
	Type     string   `json:"type"`
	Modifier string   `json:"modifier,omitempty"`
	Bearing  *float64 `json:"bearing,omitempty"`
}

// StepCoordinates carries a step's geometry with explicit endpoints.
type StepCoordinates struct {
	Start    *LatLng      `json:"start"`
	End      *LatLng      `json:"end"`
	Geometry [][2]float64 `json:"geometry"`
}

// PositionMessage is a GPS fix published on the app position topic.
type PositionMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// NavigationStepMessage announces the step the user is currently on.
// CurrentStep is 1-based.
type NavigationStepMessage struct {
	Type        string   `json:"type"`
	CurrentStep int      `json:"current_step"`
	TotalSteps  int      `json:"total_steps"`
	Instruction string   `json:"instruction"`
	Distance    int      `json:"distance"`
	Duration    int      `json:"duration"`
	Icon        string   `json:"icon"`
	Bearing     *float64 `json:"bearing,omitempty"`
}

// CommandMessage is an inbound command addressed to this client.
type CommandMessage struct {
	Type string `json:"type"`
}

// OutboundCommand is a command the app sends to the device.
type OutboundCommand struct {
	Command string `json:"command"`
}

// TestMessage is a connectivity probe.
type TestMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Client    string `json:"client"`
}

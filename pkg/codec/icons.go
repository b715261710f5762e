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

package codec

import (
	"regexp"
	"strings"
)

// IconUnknown is returned for any maneuver the table does not cover.
const IconUnknown = "unknown"

var whitespaceRe = regexp.MustCompile(`\s+`)

// directional modifiers, normalized form -> underscored icon fragment.
var directionalModifiers = map[string]string{
	"sharp-left":   "sharp_left",
	"sharp-right":  "sharp_right",
	"slight-left":  "slight_left",
	"slight-right": "slight_right",
	"left":         "left",
	"right":        "right",
	"straight":     "straight",
}

// maneuver types that combine with a directional modifier as
// <type>_<modifier>.
var directionalTypes = map[string]string{
	"turn":         "turn",
	"continue":     "continue",
	"fork":         "fork",
	"merge":        "merge",
	"on-ramp":      "on_ramp",
	"off-ramp":     "off_ramp",
	"new-name":     "new_name",
	"notification": "notification",
}

func normalizeToken(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

func normalizeModifier(mod string) string {
	normalized := normalizeToken(mod)
	switch normalized {
	case "u-turn", "uturn", "u_turn":
		return "uturn"
	}

	return normalized
}

// ManeuverIcon maps a maneuver (type, modifier) pair to its icon name.
// It is total: any unrecognized combination maps to IconUnknown. This is
// the single source of truth for icon names, shared by the route and
// navigation-step encoders.
func ManeuverIcon(typ, modifier string) string {
	if typ == "" {
		return IconUnknown
	}

	normalizedType := normalizeToken(typ)
	normalizedModifier := normalizeModifier(modifier)

	switch normalizedType {
	case "arrive", "depart":
		switch normalizedModifier {
		case "left", "right", "straight":
			return normalizedType + "_" + normalizedModifier
		}

		return normalizedType
	case "roundabout", "rotary":
		if frag, ok := directionalModifiers[normalizedModifier]; ok {
			return "roundabout_" + frag
		}

		return normalizedType
	}

	if normalizedModifier != "" {
		if normalizedModifier == "uturn" {
			if normalizedType == "continue" {
				return "continue_uturn"
			}

			return "uturn"
		}

		if prefix, ok := directionalTypes[normalizedType]; ok {
			frag, ok := directionalModifiers[normalizedModifier]
			if !ok {
				frag = normalizedModifier
			}

			return prefix + "_" + frag
		}
	}

	if normalizedType == "continue" || normalizedType == "straight" {
		return "continue_straight"
	}

	return IconUnknown
}

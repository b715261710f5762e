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

// EnvOverrider is implemented by config structs whose secrets can be
// supplied through environment variables instead of the config file.
type EnvOverrider interface {
	ApplyEnvOverrides()
}

func applyEnvOverrides(dst interface{}) {
	if o, ok := dst.(EnvOverrider); ok {
		o.ApplyEnvOverrides()
	}
}

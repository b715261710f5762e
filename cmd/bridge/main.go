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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/imeuro/micronav-alpha/pkg/bridge"
	"github.com/imeuro/micronav-alpha/pkg/config"
	"github.com/imeuro/micronav-alpha/pkg/directions"
	"github.com/imeuro/micronav-alpha/pkg/logger"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/micronav/bridge.json", "Path to bridge config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg bridge.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	bridgeLogger, err := logger.NewComponentLogger("bridge", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	var routes bridge.RouteSource
	if cfg.MapboxToken != "" {
		routes = directions.NewClient(cfg.MapboxToken)
	}

	b := bridge.New(cfg, nil, nil, routes, nil, bridgeLogger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.Start(runCtx)

	if err := b.Connect(runCtx); err != nil {
		b.Stop()
		return fmt.Errorf("broker connection failed: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	bridgeLogger.Info().Str("signal", sig.String()).Msg("Shutting down")

	cancel()
	b.Stop()

	return nil
}

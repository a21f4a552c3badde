/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/withhook/hooksync"
	"github.com/withhook/hooksync/api"
	"github.com/withhook/hooksync/config"
	trace "github.com/withhook/hooksync/internal/traces"
)

// setupLogFile tees logrus output into a size-rotated file.
func setupLogFile(path string) io.Closer {
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating
}

// sendHeartbeat initializes and maintains a periodic heartbeat to PostHog
func sendHeartbeat(ctx context.Context, client posthog.Client, heartbeatID string) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := client.Enqueue(posthog.Capture{
					DistinctId: heartbeatID,
					Event:      "server_heartbeat",
					Properties: map[string]interface{}{
						"timestamp": time.Now().UTC(),
					},
				}); err != nil {
					log.Printf("Failed to send heartbeat: %v", err)
				}
			}
		}
	}()
}

// captureSyncs reports every finished drain of a non-empty queue.
func captureSyncs(client posthog.Client, distinctID string) hooksync.SyncListener {
	return func(event hooksync.SyncEvent) {
		if event.Kind != hooksync.SyncFinished || event.Skipped {
			return
		}
		if err := client.Enqueue(posthog.Capture{
			DistinctId: distinctID,
			Event:      "mutations_synced",
			Properties: map[string]interface{}{
				"reason":    event.Reason,
				"processed": event.Processed,
				"remaining": event.Pending,
			},
		}); err != nil {
			logrus.WithError(err).Debug("failed to capture sync event")
		}
	}
}

func initializeTracing(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	shutdown, err := trace.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func initializePostHog(ctx context.Context) (posthog.Client, string, error) {
	client, err := posthog.NewWithConfig(os.Getenv("HOOKSYNC_POSTHOG_KEY"),
		posthog.Config{Endpoint: "https://us.i.posthog.com"})
	if err != nil {
		return nil, "", err
	}
	heartbeatID := uuid.New().String()
	sendHeartbeat(ctx, client, heartbeatID)
	return client, heartbeatID, nil
}

func initializeObservability(ctx context.Context, cfg *config.Configuration) (posthog.Client, string, func(context.Context) error, error) {
	if !cfg.EnableTelemetry {
		return nil, "", func(context.Context) error { return nil }, nil
	}

	shutdown, err := initializeTracing(ctx, cfg.ProjectName)
	if err != nil {
		return nil, "", nil, err
	}

	phClient, distinctID, err := initializePostHog(ctx)
	if err != nil {
		logrus.WithError(err).Warn("PostHog initialization failed, continuing without product telemetry")
		return nil, "", shutdown, nil
	}
	return phClient, distinctID, shutdown, nil
}

func startServer(ctx context.Context, h *hooksync.HookSync, cfg *config.Configuration) error {
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewAPI(h, cfg).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting diagnostics server on http://localhost:%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// serverCommands starts the sync engine and, unless disabled, the diagnostics API.
func serverCommands(h *syncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the sync engine",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg := h.cnf

			if cfg.LogFile != "" {
				defer setupLogFile(cfg.LogFile).Close()
			}

			phClient, distinctID, shutdown, err := initializeObservability(ctx, cfg)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				defer phClient.Close()
				h.sync.Orchestrator.OnSync(captureSyncs(phClient, distinctID))
			}

			if err := h.sync.Start(ctx); err != nil {
				log.Fatal(err)
			}
			defer h.sync.Stop()

			if cfg.Server.Disabled {
				logrus.Info("diagnostics server disabled")
				<-ctx.Done()
				return
			}
			if err := startServer(ctx, h.sync, cfg); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}

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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/api"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	trace "github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/traces"
)

const (
	certStoragePath   = "certmagic"
	heartbeatInterval = 5 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

// newTLSServer builds an HTTPS server whose certificates are managed by
// CertMagic. Without a domain it serves localhost.
func newTLSServer(ctx context.Context, r *gin.Engine, conf config.ServerConfig) (*http.Server, error) {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: certStoragePath}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		logrus.Warn("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(ctx, domains); err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}, nil
}

// sendHeartbeat reports that an instance is alive. It carries no request data.
func sendHeartbeat(ctx context.Context, client posthog.Client, heartbeatID string) {
	ticker := time.NewTicker(heartbeatInterval)
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
					logrus.Warnf("Failed to send heartbeat: %v", err)
				}
			}
		}
	}()
}

func initializeTracing(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	shutdown, err := trace.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func initializePostHog(ctx context.Context, key string) (posthog.Client, error) {
	client, err := posthog.NewWithConfig(key, posthog.Config{Endpoint: "https://us.i.posthog.com"})
	if err != nil {
		return nil, err
	}
	sendHeartbeat(ctx, client, uuid.New().String())
	return client, nil
}

// initializeObservability sets up tracing and, when a key is configured,
// the PostHog heartbeat. Both are off unless telemetry is enabled.
func initializeObservability(ctx context.Context, cfg *config.Configuration) (posthog.Client, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.EnableTelemetry {
		return nil, noop, nil
	}

	shutdown, err := initializeTracing(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Telemetry.PosthogKey == "" {
		return nil, shutdown, nil
	}
	phClient, err := initializePostHog(ctx, cfg.Telemetry.PosthogKey)
	if err != nil {
		logrus.Warnf("PostHog initialization error: %v", err)
		return nil, shutdown, nil
	}
	return phClient, shutdown, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, router *gin.Engine, cfg config.ServerConfig) error {
	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	if cfg.SSL {
		tlsServer, err := newTLSServer(ctx, router, cfg)
		if err != nil {
			return err
		}
		server = tlsServer
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.SSL {
			logrus.Infof("Starting HTTPS server on %s", cfg.Port)
			err = server.ListenAndServeTLS("", "")
		} else {
			logrus.Infof("Starting server on http://localhost:%s", cfg.Port)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// serverCommands returns the command that starts the gate's HTTP server.
func serverCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the shadowpay gate server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			phClient, shutdown, err := initializeObservability(ctx, app.cnf)
			if err != nil {
				logrus.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Errorf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				defer phClient.Close()
			}

			sp, err := app.gate()
			if err != nil {
				logrus.Fatal(err)
			}
			defer func() {
				if err := sp.Close(); err != nil {
					logrus.Errorf("Error closing shadowpay: %v", err)
				}
			}()

			if err := sp.Start(ctx); err != nil {
				logrus.Fatalf("Error loading epoch roots: %v", err)
			}

			router := api.NewAPI(sp).Router()
			if err := runServer(ctx, router, app.cnf.Server); err != nil {
				logrus.Error(err)
			}
		},
	}

	return cmd
}

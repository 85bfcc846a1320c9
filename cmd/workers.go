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

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	shadowpay "github.com/Radrdotfun/radr-http-434-private-payment-proof"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
)

var errNoRedis = errors.New("workers need redis.dns to be configured")

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	if conf.Redis.Dns == "" {
		return nil, errNoRedis
	}
	redisOption, err := shadowpay.RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(redisOption, asynq.Config{
		Concurrency: conf.Queue.NumberOfWorkers,
		Queues:      map[string]int{conf.Queue.ProofEventsQueue: 1},
		Logger:      logrus.StandardLogger(),
	}), nil
}

// tracedHandler wraps a task handler in a span named after the task type.
func tracedHandler(next asynq.HandlerFunc) asynq.HandlerFunc {
	tracer := otel.Tracer("shadowpay.workers")
	return func(ctx context.Context, t *asynq.Task) error {
		ctx, span := tracer.Start(ctx, "Process "+t.Type())
		defer span.End()
		err := next(ctx, t)
		if err != nil {
			span.RecordError(err)
		}
		return err
	}
}

func initializeTaskHandlers(conf *config.Configuration, mux *asynq.ServeMux) {
	sender := shadowpay.NewWebhookSender(conf)
	mux.HandleFunc(shadowpay.ProofAcceptedTask, tracedHandler(sender.ProcessProofAccepted))
}

// workerCommands defines the "workers" command that delivers queued gate
// events to the configured webhook.
func workerCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start shadowpay event workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := app.cnf

			phClient, shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				logrus.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					logrus.Errorf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				defer phClient.Close()
			}

			if conf.Notification.Webhook.Url == "" {
				logrus.Warn("no webhook url configured, proof events will be acknowledged without delivery")
			}

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				logrus.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(conf, mux)

			if err := srv.Run(mux); err != nil {
				logrus.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}

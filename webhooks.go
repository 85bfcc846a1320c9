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

package shadowpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const (
	webhookTimeout     = 10 * time.Second
	webhookMaxAttempts = 3
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// WebhookSender delivers gate events to the configured webhook endpoint.
type WebhookSender struct {
	url    string
	client *request.Client
}

func NewWebhookSender(conf *config.Configuration, opts ...request.Option) *WebhookSender {
	opts = append([]request.Option{request.WithHeaders(conf.Notification.Webhook.Headers)}, opts...)
	return &WebhookSender{
		url:    conf.Notification.Webhook.Url,
		client: request.NewClient("webhook", webhookTimeout, opts...),
	}
}

// SendWebhook posts hook, retrying transport errors and 5xx responses with
// exponential backoff. 4xx responses are not retried.
func (w *WebhookSender) SendWebhook(ctx context.Context, hook NewWebhook) error {
	if w.url == "" {
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), webhookMaxAttempts-1), ctx)
	return backoff.RetryNotify(func() error {
		err := w.client.PostJSON(ctx, w.url, hook, nil)
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, next time.Duration) {
		logrus.WithError(err).WithField("event", hook.Event).Warnf("webhook delivery failed, retrying in %s", next)
	})
}

// ProcessProofAccepted is the asynq handler for ProofAcceptedTask.
func (w *WebhookSender) ProcessProofAccepted(ctx context.Context, task *asynq.Task) error {
	var event model.ProofAcceptedEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return fmt.Errorf("invalid proof accepted payload: %v: %w", err, asynq.SkipRetry)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"invoice_id": event.InvoiceID,
	}).Info("processing proof accepted event")

	return w.SendWebhook(ctx, NewWebhook{Event: ProofAcceptedTask, Payload: event})
}

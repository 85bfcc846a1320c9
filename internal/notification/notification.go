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

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
)

const slackTimeout = 5 * time.Second

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// Notifier reports gate faults to operators.
type Notifier struct {
	slackWebhookURL string
	projectName     string
	client          *request.Client
}

func New(cnf *config.Configuration, opts ...request.Option) *Notifier {
	return &Notifier{
		slackWebhookURL: cnf.Notification.Slack.WebhookUrl,
		projectName:     cnf.ProjectName,
		client:          request.NewClient("slack", slackTimeout, opts...),
	}
}

func slackPayload(project string, err error, at time.Time) slackMessage {
	return slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Error From %s 🐞", project), Emoji: true}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%v", err)}}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%v", at.Format(time.RFC822))}}},
	}}
}

// SlackNotification posts err to the configured Slack webhook.
func (n *Notifier) SlackNotification(ctx context.Context, err error) error {
	return n.client.PostJSON(ctx, n.slackWebhookURL, slackPayload(n.projectName, err, time.Now()), nil)
}

// NotifyError logs systemError and forwards it to Slack when a webhook is
// configured. Delivery runs in the background and never blocks the caller.
func (n *Notifier) NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		if n.slackWebhookURL == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), slackTimeout)
		defer cancel()
		if err := n.SlackNotification(ctx, systemError); err != nil {
			logrus.WithError(err).Warn("failed to send slack notification")
		}
	}(systemError)
}

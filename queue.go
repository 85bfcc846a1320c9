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

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	redis_db "github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/redis-db"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

// ProofAcceptedTask is the asynq task type carrying a model.ProofAcceptedEvent.
const ProofAcceptedTask = "proof.accepted"

// Queue publishes gate events to redis for the workers command.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	queueName string
	maxRetry  int
}

// RedisClientOpt converts the configured redis address into asynq options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
		queueName: conf.Queue.ProofEventsQueue,
		maxRetry:  conf.Queue.MaxRetryAttempts,
	}, nil
}

// PublishProofAccepted enqueues event using its id as the task id, so a
// republished event is dropped by redis instead of delivered twice.
func (q *Queue) PublishProofAccepted(ctx context.Context, event model.ProofAcceptedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(event.EventID),
		asynq.Queue(q.queueName),
		asynq.MaxRetry(q.maxRetry),
	}
	task := asynq.NewTask(ProofAcceptedTask, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"task_id":    info.ID,
		"queue":      info.Queue,
		"invoice_id": event.InvoiceID,
	}).Debug("enqueued proof accepted event")
	return nil
}

func (q *Queue) Close() error {
	return errors.Join(q.Client.Close(), q.Inspector.Close())
}

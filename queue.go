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

package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blnkfinance/uploader/config"
	redis_db "github.com/blnkfinance/uploader/internal/redis-db"
	"github.com/blnkfinance/uploader/model"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	// TaskTypePacketUpload asks a worker to run the upload stage for one id.
	TaskTypePacketUpload = "packet:upload"
	// TaskTypePacketValidate hands an uploaded id to the next stage.
	TaskTypePacketValidate = "packet:validate"

	uploadMaxRetry = 5
)

// UploadPayload is the body of a packet:upload task.
type UploadPayload struct {
	RegistrationID string `json:"registration_id"`
	StageName      string `json:"stage_name,omitempty"`
}

// NextStagePayload is the body of a packet:validate task.
type NextStagePayload struct {
	RegistrationID   string                 `json:"registration_id"`
	RegistrationType model.RegistrationType `json:"registration_type"`
}

// Queue publishes upload and next-stage tasks.
type Queue struct {
	Client         *asynq.Client
	Inspector      *asynq.Inspector
	uploadQueue    string
	nextStageQueue string
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	queueOptions := asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}
	return newQueue(queueOptions, conf.Queue), nil
}

func newQueue(opt asynq.RedisConnOpt, cfg config.QueueConfig) *Queue {
	return &Queue{
		Client:         asynq.NewClient(opt),
		Inspector:      asynq.NewInspector(opt),
		uploadQueue:    cfg.UploadQueue,
		nextStageQueue: cfg.NextStageQueue,
	}
}

func (q *Queue) enqueue(ctx context.Context, taskType, queue string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append(opts, asynq.Queue(queue))
	return q.Client.EnqueueContext(ctx, asynq.NewTask(taskType, body), opts...)
}

// EnqueueUpload schedules the upload stage for registrationID right away.
func (q *Queue) EnqueueUpload(ctx context.Context, registrationID, stageName string) (*asynq.TaskInfo, error) {
	if registrationID == "" {
		return nil, errors.New("registration id is required")
	}
	info, err := q.enqueue(ctx, TaskTypePacketUpload, q.uploadQueue,
		UploadPayload{RegistrationID: registrationID, StageName: stageName},
		asynq.MaxRetry(uploadMaxRetry),
	)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"registration_id": registrationID, "task_id": info.ID}).Info("packet upload enqueued")
	return info, nil
}

// Requeue schedules another upload attempt after delay.
func (q *Queue) Requeue(ctx context.Context, registrationID, stageName string, delay time.Duration) error {
	info, err := q.enqueue(ctx, TaskTypePacketUpload, q.uploadQueue,
		UploadPayload{RegistrationID: registrationID, StageName: stageName},
		asynq.MaxRetry(uploadMaxRetry),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"registration_id": registrationID,
		"task_id":         info.ID,
		"process_at":      info.NextProcessAt,
	}).Info("packet upload re-scheduled")
	return nil
}

// Forward publishes an accepted registration to the next stage's queue.
func (q *Queue) Forward(ctx context.Context, outcome model.PipelineOutcome) error {
	info, err := q.enqueue(ctx, TaskTypePacketValidate, q.nextStageQueue, NextStagePayload{
		RegistrationID:   outcome.RegistrationID,
		RegistrationType: outcome.RegistrationType,
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"registration_id": outcome.RegistrationID, "task_id": info.ID}).Info("registration forwarded")
	return nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		logrus.WithError(err).Warn("closing queue inspector")
	}
	return q.Client.Close()
}

// HandleRegistration enqueues an upload for a registration announced by the
// database listener.
func (q *Queue) HandleRegistration(ctx context.Context, registrationID, _ string) error {
	_, err := q.EnqueueUpload(ctx, registrationID, "")
	return err
}

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
	"fmt"
	"time"

	"github.com/blnkfinance/uploader/config"
	redlock "github.com/blnkfinance/uploader/internal/lock"
	"github.com/blnkfinance/uploader/internal/notification"
	"github.com/blnkfinance/uploader/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Router moves a registration id on after an invocation.
type Router interface {
	Forward(ctx context.Context, outcome model.PipelineOutcome) error
	Requeue(ctx context.Context, registrationID, stageName string, delay time.Duration) error
}

// Worker consumes packet:upload tasks.
type Worker struct {
	uploader   *Uploader
	router     Router
	redis      redis.UniversalClient
	stageName  string
	holder     string
	lockTTL    time.Duration
	retryDelay time.Duration
	// routeBackOff paces retries of a failed Forward or Requeue.
	routeBackOff func() backoff.BackOff
}

func NewWorker(u *Uploader, router Router, client redis.UniversalClient, cfg *config.Configuration) *Worker {
	return &Worker{
		uploader:     u,
		router:       router,
		redis:        client,
		stageName:    cfg.Stage.Name,
		holder:       uuid.NewString(),
		lockTTL:      time.Duration(cfg.Queue.LockTimeoutSec) * time.Second,
		retryDelay:   time.Duration(cfg.Queue.RetryDelaySeconds) * time.Second,
		routeBackOff: defaultRouteBackOff,
	}
}

func defaultRouteBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second
	return b
}

// Register mounts the worker's handlers on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePacketUpload, w.ProcessUploadTask)
}

// ProcessUploadTask runs the stage for the id in the task while holding the
// registration lock. A task for an id that is already being processed is
// re-scheduled instead of run concurrently. Once the stage has run the task
// is never redelivered: routing is retried here and a routing failure is
// escalated with SkipRetry.
func (w *Worker) ProcessUploadTask(ctx context.Context, t *asynq.Task) error {
	var payload UploadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RegistrationID == "" {
		logrus.WithError(err).Error("malformed packet upload task")
		return fmt.Errorf("malformed packet upload task: %w", asynq.SkipRetry)
	}
	stageName := payload.StageName
	if stageName == "" {
		stageName = w.stageName
	}

	outcome, err := RunLocked(ctx, w.uploader, w.redis, w.holder, w.lockTTL, payload.RegistrationID, stageName)
	if errors.Is(err, redlock.ErrLockHeld) {
		logrus.WithField("registration_id", payload.RegistrationID).Info("registration busy, re-scheduling upload")
		return w.router.Requeue(ctx, payload.RegistrationID, stageName, w.retryDelay)
	}
	if err != nil {
		return err
	}

	if err := w.route(ctx, outcome, stageName); err != nil {
		notification.NotifyError(fmt.Errorf("registration %s: routing %s outcome failed: %w", outcome.RegistrationID, outcome.Disposition, err))
		return fmt.Errorf("routing registration %s: %w: %w", outcome.RegistrationID, err, asynq.SkipRetry)
	}
	return nil
}

// RunLocked runs the stage for registrationID while holding its upload lock.
// The lock is extended every half TTL until the run ends. It returns
// redlock.ErrLockHeld, without running, when another holder has the id.
func RunLocked(ctx context.Context, u *Uploader, client redis.UniversalClient, holder string, ttl time.Duration, registrationID, stageName string) (model.PipelineOutcome, error) {
	locker := redlock.NewLocker(client, registrationID, holder)
	if err := locker.Lock(ctx, ttl); err != nil {
		return model.PipelineOutcome{}, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		heartbeat(ctx, locker, ttl, stop)
	}()
	defer func() {
		close(stop)
		<-done
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.WithError(err).WithField("registration_id", registrationID).Warn("releasing registration lock")
		}
	}()

	return u.Run(ctx, registrationID, stageName), nil
}

func heartbeat(ctx context.Context, locker *redlock.Locker, ttl time.Duration, stop <-chan struct{}) {
	interval := ttl / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := locker.Extend(context.WithoutCancel(ctx), ttl); err != nil {
				logrus.WithError(err).WithField("lock", locker.Key()).Warn("extending registration lock")
			}
		}
	}
}

func (w *Worker) route(ctx context.Context, outcome model.PipelineOutcome, stageName string) error {
	var op backoff.Operation
	switch outcome.Disposition {
	case model.DispositionForward:
		op = func() error { return w.router.Forward(ctx, outcome) }
	case model.DispositionRetry:
		op = func() error { return w.router.Requeue(ctx, outcome.RegistrationID, stageName, w.retryDelay) }
	default:
		logrus.WithFields(logrus.Fields{
			"registration_id": outcome.RegistrationID,
			"classification":  outcome.Classification,
		}).Warn("registration dropped by upload stage")
		return nil
	}

	notify := func(err error, next time.Duration) {
		logrus.WithError(err).WithField("registration_id", outcome.RegistrationID).Warnf("routing failed, retrying in %s", next)
	}
	return backoff.RetryNotify(op, backoff.WithContext(w.routeBackOff(), context.WithoutCancel(ctx)), notify)
}

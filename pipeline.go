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
	"fmt"
	"runtime/debug"

	"github.com/blnkfinance/uploader/internal/apierror"
	"github.com/blnkfinance/uploader/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// pipelineRun carries the state of one invocation. It is never shared.
type pipelineRun struct {
	registrationID string
	stageName      string
	registration   *model.RegistrationRecord
	status         *model.StatusRecord
	accepted       bool
	err            error
}

func (r *pipelineRun) fail(err error) {
	r.accepted = false
	r.err = err
}

// Run executes the upload stage for one registration id. It never panics
// and never returns an error: every path ends in exactly one status update
// and one audit event, and the outcome tells the caller where the id goes.
func (u *Uploader) Run(ctx context.Context, registrationID, stageName string) (outcome model.PipelineOutcome) {
	ctx, span := u.tracer.Start(ctx, "PacketUpload")
	defer span.End()
	span.SetAttributes(
		attribute.String("registration.id", registrationID),
		attribute.String("stage.name", stageName),
	)

	run := &pipelineRun{registrationID: registrationID, stageName: stageName}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"registration_id": registrationID,
				"panic":           r,
			}).Errorf("packet upload panicked\n%s", debug.Stack())
			run.fail(fmt.Errorf("packet upload panicked: %v", r))
		}

		outcome = u.report(ctx, run)
		span.SetAttributes(attribute.String("outcome.classification", outcome.Classification))
		if !outcome.Accepted {
			span.SetStatus(codes.Error, outcome.Classification)
		}
	}()

	u.execute(ctx, run)
	return outcome
}

func (u *Uploader) execute(ctx context.Context, run *pipelineRun) {
	registration, err := u.datasource.GetRegistration(ctx, run.registrationID)
	if err != nil {
		run.fail(fmt.Errorf("loading registration: %w", err))
		return
	}
	run.registration = registration

	status, err := u.datasource.GetRegistrationStatus(ctx, run.registrationID)
	switch {
	case apierror.IsNotFound(err):
		status = &model.StatusRecord{RegistrationID: run.registrationID}
	case err != nil:
		run.fail(fmt.Errorf("loading registration status: %w", err))
		return
	}
	status.LatestTransactionTypeCode = model.TransactionTypeUploadPacket
	status.RegistrationStageName = run.stageName
	run.status = status

	encrypted, err := u.fetch(ctx, run.registrationID)
	if err != nil {
		run.fail(err)
		return
	}

	if !u.digest.Verify(encrypted, registration.PacketHashValue) {
		run.fail(fmt.Errorf("%w: algorithm %s", ErrIntegrityMismatch, u.digest))
		return
	}

	result, plain, err := u.screen(ctx, run.registrationID, encrypted)
	switch {
	case err != nil:
		run.fail(err)
		return
	case result == ScreenDirty:
		run.fail(ErrMalwareDetected)
		return
	}

	next, proceed := u.governor.Next(status.RetryCount)
	status.RetryCount = model.IntPtr(next)
	if !proceed {
		run.fail(fmt.Errorf("%w: attempt %d of %d", ErrRetryExhausted, next, u.governor.MaxRetries))
		return
	}

	confirmed, err := u.commit(ctx, run.registrationID, plain)
	switch {
	case err != nil:
		run.fail(err)
	case !confirmed:
		run.fail(ErrInconclusive)
	default:
		run.accepted = true
	}
}

func (u *Uploader) fetch(ctx context.Context, registrationID string) ([]byte, error) {
	ctx, span := u.tracer.Start(ctx, "FetchPacket")
	defer span.End()

	data, err := u.fetcher.Fetch(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	span.SetAttributes(attribute.Int("packet.bytes", len(data)))
	return data, nil
}

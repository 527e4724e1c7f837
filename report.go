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
	"strings"
	"time"

	"github.com/blnkfinance/uploader/internal/notification"
	"github.com/blnkfinance/uploader/model"
	"github.com/sirupsen/logrus"
)

const (
	reportTimeout    = 30 * time.Second
	maxCommentDetail = 200
)

// report writes the status row and the audit event for a finished run and
// builds the outcome. Write failures are escalated but never change the
// outcome.
func (u *Uploader) report(ctx context.Context, run *pipelineRun) model.PipelineOutcome {
	// The run may have ended because ctx was cancelled; the report still has to land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	ctx, span := u.tracer.Start(ctx, "ReportOutcome")
	defer span.End()

	kind := KindSuccess
	if !run.accepted {
		kind = classify(run.err)
		if kind == KindSuccess {
			kind = KindUnknown
		}
	}
	row := outcomeTable[kind]

	logger := logrus.WithFields(logrus.Fields{
		"registration_id": run.registrationID,
		"stage":           run.stageName,
		"kind":            kind,
	})
	if run.err != nil {
		logger = logger.WithError(run.err)
	}

	status := run.status
	if status == nil {
		status = &model.StatusRecord{
			RegistrationID:            run.registrationID,
			LatestTransactionTypeCode: model.TransactionTypeUploadPacket,
			RegistrationStageName:     run.stageName,
		}
	}
	if row.StatusCode != "" {
		status.StatusCode = row.StatusCode
	}
	status.LatestTransactionStatusCode = row.TransactionStatus
	status.SubStatusCode = row.SubStatusCode
	status.StatusComment = statusComment(row.Comment, run.err)
	status.UpdatedBy = model.SystemUser
	status.UpdatedAt = time.Now()

	if err := u.datasource.UpdateRegistrationStatus(ctx, status, row.SubStatusCode, model.ModuleNamePacketUpload); err != nil {
		notification.NotifyError(fmt.Errorf("registration %s: status update failed: %w", run.registrationID, err))
	}

	event := &model.AuditEvent{
		ModuleID:       row.SubStatusCode,
		ModuleName:     model.ModuleNamePacketUpload,
		Description:    status.StatusComment,
		RegistrationID: run.registrationID,
		CreatedAt:      status.UpdatedAt,
	}
	if run.accepted {
		event.EventID, event.EventName, event.EventType = model.EventIDPacketUploaded, model.EventNameUpdate, model.EventTypeBusiness
	} else {
		event.EventID, event.EventName, event.EventType = model.EventIDPacketFailed, model.EventNameException, model.EventTypeSystem
	}
	if err := u.datasource.RecordAuditEvent(ctx, event); err != nil {
		notification.NotifyError(fmt.Errorf("registration %s: audit event failed: %w", run.registrationID, err))
	}

	outcome := model.PipelineOutcome{
		RegistrationID: run.registrationID,
		Accepted:       run.accepted,
		InternalError:  row.InternalError,
		Classification: string(kind),
		Disposition:    row.Disposition,
	}
	if run.registration != nil {
		outcome.RegistrationType = run.registration.RegistrationType
	}

	if run.accepted {
		logger.Info("packet uploaded")
	} else if row.InternalError {
		logger.Error("packet upload failed")
	} else {
		logger.Warn("packet rejected")
	}

	return outcome
}

// statusComment appends a bounded, single-line error detail to comment.
func statusComment(comment string, err error) string {
	if err == nil {
		return comment
	}
	detail := strings.Join(strings.Fields(err.Error()), " ")
	if runes := []rune(detail); len(runes) > maxCommentDetail {
		detail = string(runes[:maxCommentDetail])
	}
	return comment + ": " + detail
}

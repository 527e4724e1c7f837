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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blnkfinance/uploader/internal/apierror"
	"github.com/blnkfinance/uploader/model"
)

// GetRegistrationStatus reads the current status row of a registration.
func (d Datasource) GetRegistrationStatus(ctx context.Context, registrationID string) (*model.StatusRecord, error) {
	status := &model.StatusRecord{}
	var (
		subStatus, comment, trnType, trnStatus, stage, updatedBy sql.NullString
		retryCount                                               sql.NullInt64
	)

	err := d.Conn.QueryRowContext(ctx, `
		SELECT reg_id, status_code, sub_status_code, status_comment, latest_trn_type_code,
		       latest_trn_status_code, reg_stage_name, retry_count, upd_by, upd_dtimes
		FROM regprc.registration_status
		WHERE reg_id = $1
	`, registrationID).Scan(
		&status.RegistrationID, &status.StatusCode, &subStatus, &comment, &trnType,
		&trnStatus, &stage, &retryCount, &updatedBy, &status.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Registration status not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrUnavailable, "Failed to retrieve registration status", err)
	}

	status.SubStatusCode = subStatus.String
	status.StatusComment = comment.String
	status.LatestTransactionTypeCode = trnType.String
	status.LatestTransactionStatusCode = trnStatus.String
	status.RegistrationStageName = stage.String
	status.UpdatedBy = updatedBy.String
	if retryCount.Valid {
		status.RetryCount = model.IntPtr(int(retryCount.Int64))
	}

	return status, nil
}

// UpdateRegistrationStatus upserts the status row and records the matching
// registration transaction in one database transaction.
func (d Datasource) UpdateRegistrationStatus(ctx context.Context, status *model.StatusRecord, moduleID, moduleName string) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}

	var retryCount sql.NullInt64
	if status.RetryCount != nil {
		retryCount = sql.NullInt64{Int64: int64(*status.RetryCount), Valid: true}
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrUnavailable, "Failed to begin status update", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO regprc.registration_status (reg_id, status_code, sub_status_code, status_comment,
			latest_trn_type_code, latest_trn_status_code, reg_stage_name, retry_count, upd_by, upd_dtimes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reg_id) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			sub_status_code = EXCLUDED.sub_status_code,
			status_comment = EXCLUDED.status_comment,
			latest_trn_type_code = EXCLUDED.latest_trn_type_code,
			latest_trn_status_code = EXCLUDED.latest_trn_status_code,
			reg_stage_name = EXCLUDED.reg_stage_name,
			retry_count = COALESCE(EXCLUDED.retry_count, regprc.registration_status.retry_count),
			upd_by = EXCLUDED.upd_by,
			upd_dtimes = EXCLUDED.upd_dtimes
	`, status.RegistrationID, status.StatusCode, status.SubStatusCode, status.StatusComment,
		status.LatestTransactionTypeCode, status.LatestTransactionStatusCode, status.RegistrationStageName,
		retryCount, status.UpdatedBy, status.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return apierror.NewAPIError(apierror.ErrUnavailable, "Failed to update registration status", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO regprc.registration_transaction (id, reg_id, trn_type_code, status_code, sub_status_code,
			status_comment, module_id, module_name, cr_by, cr_dtimes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, model.GenerateUUIDWithSuffix("trn"), status.RegistrationID, status.LatestTransactionTypeCode,
		status.LatestTransactionStatusCode, status.SubStatusCode, status.StatusComment,
		moduleID, moduleName, status.UpdatedBy, status.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return apierror.NewAPIError(apierror.ErrUnavailable, "Failed to record registration transaction", err)
	}

	if err = tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrUnavailable, "Failed to commit status update", err)
	}
	return nil
}

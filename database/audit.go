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
	"time"

	"github.com/blnkfinance/uploader/internal/apierror"
	"github.com/blnkfinance/uploader/model"
)

// RecordAuditEvent appends an entry to the audit log.
func (d Datasource) RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	if event.AuditID == "" {
		event.AuditID = model.GenerateUUIDWithSuffix("aud")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO regprc.audit_log (audit_id, event_id, event_name, event_type, module_id, module_name, description, reg_id, cr_dtimes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.AuditID, event.EventID, event.EventName, event.EventType, event.ModuleID, event.ModuleName,
		event.Description, event.RegistrationID, event.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrUnavailable, "Failed to record audit event", err)
	}
	return nil
}

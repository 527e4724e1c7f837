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

	"github.com/blnkfinance/uploader/model"
)

// IDataSource groups the persistence operations the upload stage needs.
type IDataSource interface {
	registration
	registrationStatus
	audit
}

type registration interface {
	GetRegistration(ctx context.Context, registrationID string) (*model.RegistrationRecord, error)
}

type registrationStatus interface {
	GetRegistrationStatus(ctx context.Context, registrationID string) (*model.StatusRecord, error)
	// UpdateRegistrationStatus writes the status row and appends a
	// registration transaction tagged with moduleID and moduleName.
	UpdateRegistrationStatus(ctx context.Context, status *model.StatusRecord, moduleID, moduleName string) error
}

type audit interface {
	RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error
}

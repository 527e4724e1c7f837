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
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blnkfinance/uploader/internal/apierror"
	"github.com/blnkfinance/uploader/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuditEvent_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	event := &model.AuditEvent{
		EventID:        model.EventIDPacketUploaded,
		EventName:      model.EventNameUpdate,
		EventType:      model.EventTypeBusiness,
		ModuleID:       "PUM-SUC-000",
		ModuleName:     model.ModuleNamePacketUpload,
		Description:    "Packet uploaded to packet store",
		RegistrationID: "10001",
	}

	mock.ExpectExec("INSERT INTO regprc.audit_log").
		WithArgs(sqlmock.AnyArg(), "RPR_402", "UPDATE", "BUSINESS", "PUM-SUC-000", "PACKET_UPLOAD",
			"Packet uploaded to packet store", "10001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, ds.RecordAuditEvent(context.Background(), event))
	assert.True(t, strings.HasPrefix(event.AuditID, "aud_"))
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAuditEvent_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectExec("INSERT INTO regprc.audit_log").WillReturnError(errors.New("relation does not exist"))

	err = ds.RecordAuditEvent(context.Background(), &model.AuditEvent{RegistrationID: "10001"})
	assert.Equal(t, apierror.ErrUnavailable, apierror.CodeOf(err))
}

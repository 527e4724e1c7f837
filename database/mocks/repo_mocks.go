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
package mocks

import (
	"context"

	"github.com/blnkfinance/uploader/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) GetRegistration(ctx context.Context, registrationID string) (*model.RegistrationRecord, error) {
	args := m.Called(ctx, registrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegistrationRecord), args.Error(1)
}

func (m *MockDataSource) GetRegistrationStatus(ctx context.Context, registrationID string) (*model.StatusRecord, error) {
	args := m.Called(ctx, registrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusRecord), args.Error(1)
}

func (m *MockDataSource) UpdateRegistrationStatus(ctx context.Context, status *model.StatusRecord, moduleID, moduleName string) error {
	args := m.Called(ctx, status, moduleID, moduleName)
	return args.Error(0)
}

func (m *MockDataSource) RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

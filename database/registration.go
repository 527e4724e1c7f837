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
	"github.com/sirupsen/logrus"
)

const registrationCacheTTL = 10 * time.Minute

func registrationCacheKey(registrationID string) string {
	return "registration:" + registrationID
}

// GetRegistration loads the registration header, using the cache when one
// is configured. Registrations are immutable once submitted.
func (d Datasource) GetRegistration(ctx context.Context, registrationID string) (*model.RegistrationRecord, error) {
	if d.Cache != nil {
		cached := &model.RegistrationRecord{}
		if err := d.Cache.Get(ctx, registrationCacheKey(registrationID), cached); err != nil {
			logrus.WithError(err).Debug("registration cache read failed")
		} else if cached.RegistrationID != "" {
			return cached, nil
		}
	}

	record := &model.RegistrationRecord{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT reg_id, reg_type, packet_hash_value, packet_size, cr_dtimes
		FROM regprc.registration
		WHERE reg_id = $1
	`, registrationID).Scan(
		&record.RegistrationID, &record.RegistrationType, &record.PacketHashValue, &record.PacketSize, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Registration not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrUnavailable, "Failed to retrieve registration", err)
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, registrationCacheKey(registrationID), record, registrationCacheTTL); err != nil {
			logrus.WithError(err).Debug("registration cache write failed")
		}
	}

	return record, nil
}

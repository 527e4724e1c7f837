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
	"errors"
	"fmt"
	"time"

	"github.com/blnkfinance/uploader/internal/packetstore"
	"github.com/cenkalti/backoff/v4"
)

var errNotVisible = errors.New("packet not visible yet")

const existsInitialInterval = 50 * time.Millisecond

// commit stores the clear packet and confirms it can be read back. It
// returns confirmed=false with a nil error when the write succeeded but the
// packet never became visible within existsMaxWait.
func (u *Uploader) commit(ctx context.Context, registrationID string, plain []byte) (bool, error) {
	ctx, span := u.tracer.Start(ctx, "CommitPacket")
	defer span.End()

	if err := u.store.Store(ctx, registrationID, plain); err != nil {
		if !errors.Is(err, packetstore.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", packetstore.ErrUnavailable, err)
		}
		return false, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = existsInitialInterval
	b.MaxElapsedTime = u.existsMaxWait

	var lastErr error
	check := func() error {
		exists, err := u.store.Exists(ctx, registrationID)
		switch {
		case err != nil:
			lastErr = err
		case !exists:
			lastErr = errNotVisible
		default:
			lastErr = nil
		}
		return lastErr
	}

	// A zero budget still gets exactly one check.
	var err error
	if u.existsMaxWait <= 0 {
		err = check()
	} else {
		err = backoff.Retry(check, backoff.WithContext(b, ctx))
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(lastErr, errNotVisible):
		return false, nil
	case errors.Is(lastErr, packetstore.ErrUnavailable):
		return false, lastErr
	default:
		return false, fmt.Errorf("%w: %v", packetstore.ErrUnavailable, err)
	}
}

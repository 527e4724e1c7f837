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

	"github.com/blnkfinance/uploader/internal/decryptor"
	"github.com/blnkfinance/uploader/internal/scanner"
	"github.com/sirupsen/logrus"
)

// ScreenResult is the combined verdict over the encrypted and clear packet.
type ScreenResult int

const (
	ScreenClean ScreenResult = iota
	ScreenDirty
	ScreenScannerUnavailable
)

func (r ScreenResult) String() string {
	switch r {
	case ScreenClean:
		return "clean"
	case ScreenDirty:
		return "dirty"
	case ScreenScannerUnavailable:
		return "scanner-unavailable"
	default:
		return fmt.Sprintf("ScreenResult(%d)", int(r))
	}
}

// screen scans the encrypted packet, decrypts it only when that scan is
// clean, then scans the clear bytes. The clear bytes are returned only for
// a clean result. A decryption failure is returned as an error.
func (u *Uploader) screen(ctx context.Context, registrationID string, encrypted []byte) (ScreenResult, []byte, error) {
	ctx, span := u.tracer.Start(ctx, "ScreenPacket")
	defer span.End()

	logger := logrus.WithField("registration_id", registrationID)

	verdict, err := u.scanner.Scan(ctx, encrypted)
	if err != nil {
		logger.WithError(err).Warn("encrypted packet scan failed")
		return ScreenScannerUnavailable, nil, scannerError(err)
	}
	if !verdict.Clean {
		logger.WithField("signature", verdict.Signature).Warn("malware found in encrypted packet")
		return ScreenDirty, nil, nil
	}

	plain, err := u.decryptor.Decrypt(ctx, encrypted, registrationID)
	if err != nil {
		if !errors.Is(err, decryptor.ErrDecryptionFailed) {
			err = fmt.Errorf("%w: %v", decryptor.ErrDecryptionFailed, err)
		}
		return ScreenClean, nil, err
	}

	verdict, err = u.scanner.Scan(ctx, plain)
	if err != nil {
		logger.WithError(err).Warn("decrypted packet scan failed")
		return ScreenScannerUnavailable, nil, scannerError(err)
	}
	if !verdict.Clean {
		logger.WithField("signature", verdict.Signature).Warn("malware found in decrypted packet")
		return ScreenDirty, nil, nil
	}

	return ScreenClean, plain, nil
}

func scannerError(err error) error {
	if errors.Is(err, scanner.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", scanner.ErrUnavailable, err)
}

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
	"testing"

	"github.com/blnkfinance/uploader/internal/decryptor"
	"github.com/blnkfinance/uploader/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen_Clean(t *testing.T) {
	f := newFixture(t, 3, nil)

	result, plain, err := f.uploader.screen(context.Background(), f.regID, encryptedPacket)
	require.NoError(t, err)
	assert.Equal(t, ScreenClean, result)
	assert.Equal(t, clearPacket, plain)
	assert.Equal(t, [][]byte{encryptedPacket, clearPacket}, f.scanner.scanned)
}

func TestScreen_DirtyCiphertextSkipsDecryption(t *testing.T) {
	f := newFixture(t, 3, nil)

	result, plain, err := f.uploader.screen(context.Background(), f.regID, append([]byte("x"), malwareMarker...))
	require.NoError(t, err)
	assert.Equal(t, ScreenDirty, result)
	assert.Nil(t, plain)
	assert.Equal(t, 0, f.decryptor.calls)
}

func TestScreen_ScannerUnavailableIsNotDirty(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.scanner.err = errors.New("i/o timeout")

	result, plain, err := f.uploader.screen(context.Background(), f.regID, encryptedPacket)
	assert.Equal(t, ScreenScannerUnavailable, result)
	assert.Nil(t, plain)
	assert.ErrorIs(t, err, scanner.ErrUnavailable)
	assert.Equal(t, 0, f.decryptor.calls)
}

func TestScreen_DecryptionFailure(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.decryptor.err = errors.New("unknown key reference")

	_, plain, err := f.uploader.screen(context.Background(), f.regID, encryptedPacket)
	assert.Nil(t, plain)
	assert.ErrorIs(t, err, decryptor.ErrDecryptionFailed)
	assert.Len(t, f.scanner.scanned, 1, "clear bytes are never scanned")
}

func TestScreenResult_String(t *testing.T) {
	assert.Equal(t, "clean", ScreenClean.String())
	assert.Equal(t, "dirty", ScreenDirty.String())
	assert.Equal(t, "scanner-unavailable", ScreenScannerUnavailable.String())
}

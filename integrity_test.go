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
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestHex(t *testing.T, alg DigestAlgorithm, data []byte) string {
	t.Helper()
	h, err := alg.newHash()
	require.NoError(t, err)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifyDigest_RoundTrip(t *testing.T) {
	for _, alg := range []DigestAlgorithm{DigestSHA256, DigestBLAKE3} {
		t.Run(string(alg), func(t *testing.T) {
			data := []byte(gofakeit.Paragraph(3, 5, 12, " "))
			digest := digestHex(t, alg, data)
			assert.Equal(t, strings.ToLower(digest), digest)
			assert.True(t, alg.Verify(data, digest))

			ok, err := alg.VerifyReader(bytes.NewReader(data), digest)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestVerifyDigest_SingleBitFlip(t *testing.T) {
	data := []byte("registration packet payload")
	digest := sha256Hex(data)

	for i := 0; i < len(data)*8; i++ {
		flipped := append([]byte(nil), data...)
		flipped[i/8] ^= 1 << (i % 8)
		assert.False(t, DigestSHA256.Verify(flipped, digest), "bit %d", i)
	}
	assert.True(t, DigestSHA256.Verify(data, digest))
}

func TestVerifyDigest_KnownVector(t *testing.T) {
	// sha256("abc")
	assert.True(t, DigestSHA256.Verify([]byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
}

func TestVerifyDigest_StrictComparison(t *testing.T) {
	data := []byte("abc")
	digest := sha256Hex(data)

	assert.False(t, DigestSHA256.Verify(data, strings.ToUpper(digest)))
	assert.False(t, DigestSHA256.Verify(data, digest[:len(digest)-1]))
	assert.False(t, DigestSHA256.Verify(data, ""))
	assert.False(t, DigestSHA256.Verify(data, digest+"00"))
}

func TestVerifyReader_PropagatesReadErrors(t *testing.T) {
	readErr := errors.New("connection reset")
	ok, err := DigestSHA256.VerifyReader(iotest.ErrReader(readErr), sha256Hex(nil))
	assert.False(t, ok)
	assert.ErrorIs(t, err, readErr)
}

func TestDigestAlgorithm_Unknown(t *testing.T) {
	alg := DigestAlgorithm("md5")
	_, err := alg.VerifyReader(bytes.NewReader([]byte("x")), "whatever")
	assert.Error(t, err)
	assert.False(t, alg.Verify([]byte("x"), "whatever"))
}

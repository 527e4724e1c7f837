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
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/zeebo/blake3"
)

// DigestAlgorithm names the hash used for packet integrity values.
type DigestAlgorithm string

const (
	DigestSHA256 DigestAlgorithm = "sha256"
	DigestBLAKE3 DigestAlgorithm = "blake3"
)

func (a DigestAlgorithm) newHash() (hash.Hash, error) {
	switch a {
	case DigestSHA256:
		return sha256.New(), nil
	case DigestBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", a)
	}
}

// Verify reports whether data hashes to expectedHex. The comparison is exact
// and constant time; an unknown algorithm never verifies.
func (a DigestAlgorithm) Verify(data []byte, expectedHex string) bool {
	ok, err := a.VerifyReader(bytes.NewReader(data), expectedHex)
	return err == nil && ok
}

// VerifyReader streams r through the hash. Read errors are returned as-is.
func (a DigestAlgorithm) VerifyReader(r io.Reader, expectedHex string) (bool, error) {
	h, err := a.newHash()
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return false, err
	}
	return equalDigest(hex.EncodeToString(h.Sum(nil)), expectedHex), nil
}

func equalDigest(actual, expected string) bool {
	if len(actual) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

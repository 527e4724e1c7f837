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
	"io"
	"io/fs"
	"net"

	"github.com/blnkfinance/uploader/internal/apierror"
	"github.com/blnkfinance/uploader/internal/decryptor"
	"github.com/blnkfinance/uploader/internal/landingzone"
	"github.com/blnkfinance/uploader/internal/packetstore"
	"github.com/blnkfinance/uploader/internal/scanner"
	"github.com/blnkfinance/uploader/model"
)

// Kind is the classification attached to every invocation outcome.
type Kind string

const (
	KindSuccess              Kind = "success"
	KindNotFound             Kind = "not-found"
	KindIntegrityMismatch    Kind = "integrity-mismatch"
	KindMalwareDetected      Kind = "malware-detected"
	KindScannerUnavailable   Kind = "scanner-unavailable"
	KindDecryptionFailed     Kind = "decryption-failed"
	KindStorageUnavailable   Kind = "storage-unavailable"
	KindRetrievalUnavailable Kind = "retrieval-unavailable"
	KindRetryExhausted       Kind = "retry-exhausted"
	KindTransientIO          Kind = "transient-io"
	KindUnknown              Kind = "unknown"
	KindInconclusive         Kind = "inconclusive"
)

// Pipeline outcomes that are decided by a check rather than an adapter error.
var (
	ErrEmptyPacket       = errors.New("landing zone returned an empty packet")
	ErrIntegrityMismatch = errors.New("packet digest does not match the registration record")
	ErrMalwareDetected   = errors.New("malware detected in packet")
	ErrRetryExhausted    = errors.New("retry limit reached for packet upload")
	ErrInconclusive      = errors.New("stored packet is not visible in the packet store")
)

// outcomeRow is what the reporter writes for one Kind. An empty StatusCode
// leaves the stored status code unchanged.
type outcomeRow struct {
	StatusCode        string
	TransactionStatus string
	SubStatusCode     string
	Comment           string
	Disposition       model.Disposition
	InternalError     bool
}

var outcomeTable = map[Kind]outcomeRow{
	KindSuccess: {
		StatusCode: model.StatusProcessing, TransactionStatus: model.TransactionStatusSuccess,
		SubStatusCode: "PUM-SUC-000", Comment: "Packet uploaded to packet store",
		Disposition: model.DispositionForward,
	},
	KindNotFound: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusReprocess,
		SubStatusCode: "PUM-NF-001", Comment: "Packet not found in landing zone",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindIntegrityMismatch: {
		StatusCode: model.StatusRejected, TransactionStatus: model.TransactionStatusFailed,
		SubStatusCode: "PUM-HASH-002", Comment: "Packet hash does not match the registration record",
		Disposition: model.DispositionDrop,
	},
	KindMalwareDetected: {
		StatusCode: model.StatusRejected, TransactionStatus: model.TransactionStatusFailed,
		SubStatusCode: "PUM-VS-003", Comment: "Virus scan detected malware in packet",
		Disposition: model.DispositionDrop,
	},
	KindScannerUnavailable: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusReprocess,
		SubStatusCode: "PUM-VS-004", Comment: "Virus scanner unavailable",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindDecryptionFailed: {
		StatusCode: model.StatusFailed, TransactionStatus: model.TransactionStatusFailed,
		SubStatusCode: "PUM-DEC-005", Comment: "Packet decryption failed",
		Disposition: model.DispositionDrop, InternalError: true,
	},
	KindStorageUnavailable: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusReprocess,
		SubStatusCode: "PUM-FS-006", Comment: "Packet store unavailable",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindRetrievalUnavailable: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusReprocess,
		SubStatusCode: "PUM-LZ-007", Comment: "Packet could not be retrieved",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindRetryExhausted: {
		StatusCode: model.StatusFailed, TransactionStatus: model.TransactionStatusFailed,
		SubStatusCode: "PUM-RT-008", Comment: "Packet upload retry limit reached",
		Disposition: model.DispositionDrop, InternalError: true,
	},
	KindTransientIO: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusError,
		SubStatusCode: "PUM-IO-009", Comment: "I/O error while processing packet",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindUnknown: {
		StatusCode: model.StatusReprocess, TransactionStatus: model.TransactionStatusError,
		SubStatusCode: "PUM-UNK-010", Comment: "Unexpected error while uploading packet",
		Disposition: model.DispositionRetry, InternalError: true,
	},
	KindInconclusive: {
		TransactionStatus: model.TransactionStatusReprocess,
		SubStatusCode:     "PUM-FS-011", Comment: "Packet stored but not yet confirmed in packet store",
		Disposition: model.DispositionRetry, InternalError: true,
	},
}

// classify maps an error raised anywhere in the pipeline to its Kind.
// Order matters where one error can match several checks.
func classify(err error) Kind {
	var netErr net.Error

	switch {
	case err == nil:
		return KindSuccess
	case errors.Is(err, ErrIntegrityMismatch):
		return KindIntegrityMismatch
	case errors.Is(err, ErrMalwareDetected):
		return KindMalwareDetected
	case errors.Is(err, ErrRetryExhausted):
		return KindRetryExhausted
	case errors.Is(err, ErrInconclusive):
		return KindInconclusive
	case errors.Is(err, landingzone.ErrPacketNotFound), apierror.IsNotFound(err):
		return KindNotFound
	case errors.Is(err, landingzone.ErrUnavailable), errors.Is(err, ErrEmptyPacket):
		return KindRetrievalUnavailable
	case errors.Is(err, scanner.ErrUnavailable):
		return KindScannerUnavailable
	case errors.Is(err, decryptor.ErrDecryptionFailed):
		return KindDecryptionFailed
	case errors.Is(err, packetstore.ErrUnavailable):
		return KindStorageUnavailable
	case apierror.CodeOf(err) == apierror.ErrUnavailable:
		return KindRetrievalUnavailable
	case errors.Is(err, landingzone.ErrReadFailed),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrShortWrite),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return KindTransientIO
	default:
		return KindUnknown
	}
}

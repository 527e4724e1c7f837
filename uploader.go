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
	"embed"
	"errors"
	"time"

	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/database"
	"github.com/blnkfinance/uploader/internal/decryptor"
	"github.com/blnkfinance/uploader/internal/landingzone"
	"github.com/blnkfinance/uploader/internal/packetstore"
	"github.com/blnkfinance/uploader/internal/scanner"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Fetcher retrieves the encrypted packet for a registration id.
type Fetcher interface {
	Fetch(ctx context.Context, registrationID string) ([]byte, error)
}

// Scanner returns a malware verdict for a byte stream.
type Scanner interface {
	Scan(ctx context.Context, data []byte) (scanner.Verdict, error)
}

// Decryptor turns an encrypted packet into clear bytes.
type Decryptor interface {
	Decrypt(ctx context.Context, data []byte, registrationID string) ([]byte, error)
}

// PacketStore is the durable store later stages read packets from.
type PacketStore interface {
	Store(ctx context.Context, registrationID string, data []byte) error
	Exists(ctx context.Context, registrationID string) (bool, error)
}

// Uploader runs the packet upload stage. It only holds collaborators and
// settings; everything about a single invocation lives in a pipelineRun.
type Uploader struct {
	datasource    database.IDataSource
	fetcher       Fetcher
	scanner       Scanner
	decryptor     Decryptor
	store         PacketStore
	governor      RetryGovernor
	digest        DigestAlgorithm
	existsMaxWait time.Duration
	tracer        trace.Tracer
}

// NewUploader wires an Uploader from explicit collaborators.
func NewUploader(ds database.IDataSource, fetcher Fetcher, sc Scanner, dec Decryptor, store PacketStore, cfg *config.Configuration) (*Uploader, error) {
	if ds == nil || fetcher == nil || sc == nil || dec == nil || store == nil {
		return nil, errors.New("uploader: all collaborators are required")
	}

	digest := DigestAlgorithm(cfg.Stage.DigestAlgorithm)
	if digest == "" {
		digest = DigestSHA256
	}
	if _, err := digest.newHash(); err != nil {
		return nil, err
	}

	return &Uploader{
		datasource:    ds,
		fetcher:       fetcher,
		scanner:       sc,
		decryptor:     dec,
		store:         store,
		governor:      RetryGovernor{MaxRetries: cfg.Stage.MaxRetryCount},
		digest:        digest,
		existsMaxWait: time.Duration(cfg.PacketStore.ExistsMaxWaitMs) * time.Millisecond,
		tracer:        otel.Tracer("uploader.pipeline"),
	}, nil
}

// NewUploaderFromConfig builds the production adapters described by cfg.
func NewUploaderFromConfig(ctx context.Context, ds database.IDataSource, cfg *config.Configuration) (*Uploader, error) {
	store, err := packetstore.New(ctx, cfg.PacketStore)
	if err != nil {
		return nil, err
	}

	return NewUploader(
		ds,
		landingzone.NewClient(cfg.LandingZone),
		scanner.NewClient(cfg.Scanner),
		decryptor.NewClient(cfg.Decryptor),
		store,
		cfg,
	)
}

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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/database/mocks"
	"github.com/blnkfinance/uploader/internal/scanner"
	"github.com/blnkfinance/uploader/model"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	encryptedPacket = []byte("encrypted registration packet")
	clearPacket     = []byte("clear registration packet")
	malwareMarker   = []byte("EICAR")
)

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type fakeFetcher struct {
	mu      sync.Mutex
	data    []byte
	err     error
	panic   interface{}
	onFetch func(registrationID string)
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, registrationID string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	data, err, p, hook := f.data, f.err, f.panic, f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(registrationID)
	}
	if p != nil {
		panic(p)
	}
	return data, err
}

// fakeScanner flags any input containing malwareMarker.
type fakeScanner struct {
	mu      sync.Mutex
	err     error
	scanned [][]byte
}

func (s *fakeScanner) Scan(_ context.Context, data []byte) (scanner.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanned = append(s.scanned, data)
	if s.err != nil {
		return scanner.Verdict{}, s.err
	}
	if bytes.Contains(data, malwareMarker) {
		return scanner.Verdict{Clean: false, Signature: "Eicar-Test-Signature"}, nil
	}
	return scanner.Verdict{Clean: true}, nil
}

type spyDecryptor struct {
	mu    sync.Mutex
	out   []byte
	err   error
	calls int
}

func (d *spyDecryptor) Decrypt(_ context.Context, _ []byte, _ string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	storeErr  error
	failFor   map[string]error // per-id Store errors
	existsErr error
	hide      bool // stored packets never become visible
	packets   map[string][]byte
	stores    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{packets: map[string][]byte{}, failFor: map[string]error{}}
}

func (s *fakeStore) Store(_ context.Context, registrationID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores++
	if s.storeErr != nil {
		return s.storeErr
	}
	if err := s.failFor[registrationID]; err != nil {
		return err
	}
	s.packets[registrationID] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) Exists(_ context.Context, registrationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	if s.hide {
		return false, nil
	}
	_, ok := s.packets[registrationID]
	return ok, nil
}

type fixture struct {
	regID     string
	ds        *mocks.MockDataSource
	fetcher   *fakeFetcher
	scanner   *fakeScanner
	decryptor *spyDecryptor
	store     *fakeStore
	uploader  *Uploader

	record *model.RegistrationRecord
	prior  *model.StatusRecord

	statusWrites []model.StatusRecord
	moduleIDs    []string
	auditEvents  []model.AuditEvent
}

func testConfig(maxRetries int) *config.Configuration {
	return &config.Configuration{
		Stage:       config.StageConfig{Name: config.DEFAULT_STAGE_NAME, MaxRetryCount: maxRetries, DigestAlgorithm: "sha256"},
		PacketStore: config.PacketStoreConfig{ExistsMaxWaitMs: 20},
		Queue:       config.QueueConfig{RetryDelaySeconds: 60, LockTimeoutSec: 30},
	}
}

// newFixture wires an Uploader whose collaborators all succeed. Tests
// change the fakes before calling run.
func newFixture(t *testing.T, maxRetries int, priorRetry *int) *fixture {
	t.Helper()
	config.MockConfig(testConfig(maxRetries))

	f := &fixture{
		regID:     gofakeit.Numerify("#############################"),
		ds:        new(mocks.MockDataSource),
		fetcher:   &fakeFetcher{data: encryptedPacket},
		scanner:   &fakeScanner{},
		decryptor: &spyDecryptor{out: clearPacket},
		store:     newFakeStore(),
	}
	f.record = &model.RegistrationRecord{
		RegistrationID:   f.regID,
		RegistrationType: model.RegistrationTypeNew,
		PacketHashValue:  sha256Hex(encryptedPacket),
		PacketSize:       int64(len(encryptedPacket)),
	}
	f.prior = &model.StatusRecord{
		RegistrationID: f.regID,
		StatusCode:     model.StatusProcessing,
		RetryCount:     priorRetry,
	}

	u, err := NewUploader(f.ds, f.fetcher, f.scanner, f.decryptor, f.store, testConfig(maxRetries))
	require.NoError(t, err)
	f.uploader = u

	f.ds.On("GetRegistration", mock.Anything, f.regID).Return(f.record, nil).Maybe()
	f.ds.On("GetRegistrationStatus", mock.Anything, f.regID).Return(f.prior, nil).Maybe()
	f.expectReportWrites(nil, nil)
	return f
}

// expectReportWrites records what the reporter writes, replacing any
// previous expectations for the two write calls.
func (f *fixture) expectReportWrites(statusErr, auditErr error) {
	var kept []*mock.Call
	for _, c := range f.ds.ExpectedCalls {
		if c.Method != "UpdateRegistrationStatus" && c.Method != "RecordAuditEvent" {
			kept = append(kept, c)
		}
	}
	f.ds.ExpectedCalls = kept

	f.ds.On("UpdateRegistrationStatus", mock.Anything, mock.AnythingOfType("*model.StatusRecord"), mock.Anything, model.ModuleNamePacketUpload).
		Run(func(args mock.Arguments) {
			f.statusWrites = append(f.statusWrites, *args.Get(1).(*model.StatusRecord))
			f.moduleIDs = append(f.moduleIDs, args.String(2))
		}).Return(statusErr)
	f.ds.On("RecordAuditEvent", mock.Anything, mock.AnythingOfType("*model.AuditEvent")).
		Run(func(args mock.Arguments) {
			f.auditEvents = append(f.auditEvents, *args.Get(1).(*model.AuditEvent))
		}).Return(auditErr)
}

func (f *fixture) run() model.PipelineOutcome {
	return f.uploader.Run(context.Background(), f.regID, config.DEFAULT_STAGE_NAME)
}

func (f *fixture) requireSingleReport(t *testing.T) (model.StatusRecord, model.AuditEvent) {
	t.Helper()
	require.Len(t, f.statusWrites, 1, "exactly one status update")
	require.Len(t, f.auditEvents, 1, "exactly one audit event")
	return f.statusWrites[0], f.auditEvents[0]
}

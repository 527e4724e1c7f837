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
	"sync"
	"testing"
	"time"

	"github.com/blnkfinance/uploader/internal/packetstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// laggingStore becomes visible only after a number of existence checks.
type laggingStore struct {
	mu           sync.Mutex
	visibleAfter int
	checks       int
}

func (s *laggingStore) Store(context.Context, string, []byte) error { return nil }

func (s *laggingStore) Exists(context.Context, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.checks > s.visibleAfter, nil
}

func TestCommit_Confirmed(t *testing.T) {
	f := newFixture(t, 3, nil)

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestCommit_WrittenButNotVisible(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.store.hide = true

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestCommit_AbsorbsReadAfterWriteLag(t *testing.T) {
	f := newFixture(t, 3, nil)
	store := &laggingStore{visibleAfter: 1}
	f.uploader.store = store
	f.uploader.existsMaxWait = 2 * time.Second

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.Equal(t, 2, store.checks)
}

func TestCommit_ZeroBudgetChecksOnce(t *testing.T) {
	f := newFixture(t, 3, nil)
	store := &laggingStore{visibleAfter: 1}
	f.uploader.store = store
	f.uploader.existsMaxWait = 0

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.Equal(t, 1, store.checks)
}

func TestCommit_StoreFailure(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.store.storeErr = errors.New("no space left on device")

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	assert.False(t, confirmed)
	assert.ErrorIs(t, err, packetstore.ErrUnavailable)
}

func TestCommit_ExistsFailure(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.store.existsErr = errors.New("permission denied")

	confirmed, err := f.uploader.commit(context.Background(), f.regID, clearPacket)
	assert.False(t, confirmed)
	assert.ErrorIs(t, err, packetstore.ErrUnavailable)
}

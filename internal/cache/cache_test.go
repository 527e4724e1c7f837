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
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheWithClient(client), mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	record := model.RegistrationRecord{
		RegistrationID:   "10001100010001620240101120000",
		RegistrationType: model.RegistrationTypeNew,
		PacketHashValue:  "ab12",
		PacketSize:       2048,
	}
	require.NoError(t, c.Set(ctx, "registration:10001", record, time.Minute))

	var got model.RegistrationRecord
	require.NoError(t, c.Get(ctx, "registration:10001", &got))
	assert.Equal(t, record.RegistrationID, got.RegistrationID)
	assert.Equal(t, record.RegistrationType, got.RegistrationType)
	assert.Equal(t, record.PacketSize, got.PacketSize)
}

func TestGetMissLeavesValueEmpty(t *testing.T) {
	c, _ := newTestCache(t)

	var got model.RegistrationRecord
	err := c.Get(context.Background(), "registration:missing", &got)
	assert.NoError(t, err)
	assert.Empty(t, got.RegistrationID)
}

func TestDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "registration:10001", "value", time.Minute))
	assert.True(t, mr.Exists("registration:10001"))

	require.NoError(t, c.Delete(ctx, "registration:10001"))
	assert.False(t, mr.Exists("registration:10001"))

	assert.NoError(t, c.Delete(ctx, "registration:10001"))
}

func TestNewCache_FromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	c, err := NewCache()
	require.NoError(t, err)
	assert.NotNil(t, c)
}

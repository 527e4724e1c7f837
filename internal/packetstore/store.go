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

// Package packetstore persists clear registration packets in the durable
// store read by later pipeline stages.
package packetstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/blnkfinance/uploader/config"
)

const (
	DriverFilesystem = "filesystem"
	DriverS3         = "s3"
)

// ErrUnavailable is returned when the store cannot be written or queried.
var ErrUnavailable = errors.New("packet store unavailable")

// Store writes packets by registration id and reports whether one is present.
type Store interface {
	Store(ctx context.Context, registrationID string, data []byte) error
	Exists(ctx context.Context, registrationID string) (bool, error)
}

// ObjectKey is the name a packet is stored under.
func ObjectKey(registrationID string) string {
	return registrationID + ".zip"
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.PacketStoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverFilesystem, "":
		return NewFilesystemStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown packet store driver %q", cfg.Driver)
	}
}

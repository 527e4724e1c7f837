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

// Package landingzone downloads encrypted registration packets from the
// landing zone server, where each packet is published as <id><extension>.
package landingzone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blnkfinance/uploader/config"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPacketNotFound means the landing zone answered but has no packet for the id.
	ErrPacketNotFound = errors.New("packet not found in landing zone")
	// ErrUnavailable covers transport failures and unexpected status codes.
	ErrUnavailable = errors.New("landing zone unavailable")
	// ErrReadFailed is returned when the body breaks off mid-transfer.
	ErrReadFailed = errors.New("landing zone read failed")
)

type Client struct {
	baseURL    string
	extension  string
	httpClient *http.Client
}

func NewClient(cfg config.LandingZoneConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.Url, "/"),
		extension:  cfg.PacketExtension,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// PacketURL returns the location of the packet for registrationID.
func (c *Client) PacketURL(registrationID string) string {
	return fmt.Sprintf("%s/%s%s", c.baseURL, url.PathEscape(registrationID), c.extension)
}

// Fetch downloads the whole packet into memory.
func (c *Client) Fetch(ctx context.Context, registrationID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PacketURL(registrationID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPacketNotFound, registrationID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"registration_id": registrationID,
		"bytes":           len(data),
	}).Debug("packet fetched from landing zone")

	return data, nil
}

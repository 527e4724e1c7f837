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

// Package decryptor is the client of the key-manager decryption service.
package decryptor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/internal/request"
)

// ErrDecryptionFailed wraps every failure to obtain clear bytes.
var ErrDecryptionFailed = errors.New("packet decryption failed")

type decryptRequest struct {
	RegistrationID string `json:"registration_id"`
	Data           string `json:"data"`
}

type decryptResponse struct {
	Data  string `json:"data"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

func NewClient(cfg config.DecryptorConfig) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Url, "/") + "/decrypt",
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Decrypt sends the encrypted packet and returns the clear bytes.
func (c *Client) Decrypt(ctx context.Context, data []byte, registrationID string) ([]byte, error) {
	payload, err := request.ToJsonReq(decryptRequest{
		RegistrationID: registrationID,
		Data:           base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	var response decryptResponse
	if _, err := request.Call(c.httpClient, req, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDecryptionFailed, response.Error)
	}

	plain, err := base64.StdEncoding.DecodeString(response.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrDecryptionFailed, err)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrDecryptionFailed)
	}
	return plain, nil
}

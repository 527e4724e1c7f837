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

// Package scanner streams packets to a clamd daemon using the INSTREAM
// command and interprets its verdict.
package scanner

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/blnkfinance/uploader/config"
)

// ErrUnavailable is returned when no verdict could be obtained.
var ErrUnavailable = errors.New("virus scanner unavailable")

const defaultChunkSize = 64 * 1024

// Verdict is the daemon's answer for one stream.
type Verdict struct {
	Clean     bool
	Signature string // set when Clean is false
}

type Client struct {
	address   string
	timeout   time.Duration
	chunkSize int
}

func NewClient(cfg config.ScannerConfig) *Client {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &Client{
		address:   cfg.Address,
		timeout:   time.Duration(cfg.Timeout) * time.Second,
		chunkSize: chunk,
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if c.timeout > 0 {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zPING\x00")); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	reply, err := readReply(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if reply != "PONG" {
		return fmt.Errorf("%w: unexpected ping reply %q", ErrUnavailable, reply)
	}
	return nil
}

// Scan streams data in chunks and returns the daemon's verdict.
func (c *Client) Scan(ctx context.Context, data []byte) (Verdict, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	if err := c.stream(conn, data); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reply, err := readReply(conn)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseVerdict(reply)
}

func (c *Client) stream(conn net.Conn, data []byte) error {
	w := bufio.NewWriterSize(conn, c.chunkSize+4)
	if _, err := w.WriteString("zINSTREAM\x00"); err != nil {
		return err
	}

	size := make([]byte, 4)
	for start := 0; start < len(data); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(data) {
			end = len(data)
		}
		binary.BigEndian.PutUint32(size, uint32(end-start))
		if _, err := w.Write(size); err != nil {
			return err
		}
		if _, err := w.Write(data[start:end]); err != nil {
			return err
		}
	}

	binary.BigEndian.PutUint32(size, 0)
	if _, err := w.Write(size); err != nil {
		return err
	}
	return w.Flush()
}

// readReply reads one NUL terminated reply.
func readReply(conn net.Conn) (string, error) {
	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return "", err
	}
	return strings.TrimSpace(strings.TrimRight(reply, "\x00")), nil
}

// parseVerdict understands "stream: OK", "stream: <sig> FOUND" and
// "<reason> ERROR" replies.
func parseVerdict(reply string) (Verdict, error) {
	body := strings.TrimSpace(strings.TrimPrefix(reply, "stream:"))
	switch {
	case body == "OK":
		return Verdict{Clean: true}, nil
	case strings.HasSuffix(body, " FOUND"):
		return Verdict{Clean: false, Signature: strings.TrimSuffix(body, " FOUND")}, nil
	case strings.HasSuffix(body, "ERROR"):
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnavailable, body)
	default:
		return Verdict{}, fmt.Errorf("%w: unexpected reply %q", ErrUnavailable, reply)
	}
}

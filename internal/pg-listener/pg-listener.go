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

package pg_listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Channel is the notification channel the registration insert trigger
// publishes on.
const Channel = "registration_received"

// RegistrationHandler is called once for every registration announced on
// the channel.
type RegistrationHandler interface {
	HandleRegistration(ctx context.Context, registrationID, registrationType string) error
}

type ListenerConfig struct {
	PgConnStr string
	// Interval is how often an idle listener pings the server.
	Interval time.Duration
	Timeout  time.Duration
}

type DBListener struct {
	config  ListenerConfig
	handler RegistrationHandler
}

// NotificationPayload is the JSON body the trigger sends.
type NotificationPayload struct {
	Table string           `json:"table"`
	Data  RegistrationData `json:"data"`
}

type RegistrationData struct {
	RegistrationID   string `json:"reg_id"`
	RegistrationType string `json:"reg_type"`
}

func NewDBListener(config ListenerConfig, handler RegistrationHandler) *DBListener {
	if config.Interval <= 0 {
		config.Interval = 90 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	return &DBListener{
		config:  config,
		handler: handler,
	}
}

// Start listens until ctx is cancelled.
func (d *DBListener) Start(ctx context.Context) error {
	listener := pq.NewListener(d.config.PgConnStr, 10*time.Second, d.config.Timeout, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithError(err).Warn("registration listener event")
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("listen on %s: %w", Channel, err)
	}
	logrus.Infof("listening for postgres notifications on channel '%s'", Channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; rows inserted meanwhile were missed.
			if n == nil {
				logrus.Warn("registration listener reconnected")
				continue
			}
			d.handleNotification(ctx, n.Extra)
		case <-time.After(d.config.Interval):
			if err := listener.Ping(); err != nil {
				logrus.WithError(err).Warn("registration listener ping failed")
			}
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, extra string) {
	payload, err := parsePayload(extra)
	if err != nil {
		logrus.WithError(err).Error("invalid registration notification")
		return
	}

	if err := d.handler.HandleRegistration(ctx, payload.Data.RegistrationID, payload.Data.RegistrationType); err != nil {
		logrus.WithError(err).WithField("registration_id", payload.Data.RegistrationID).Error("error handling registration notification")
	}
}

func parsePayload(extra string) (NotificationPayload, error) {
	var payload NotificationPayload
	if err := json.Unmarshal([]byte(extra), &payload); err != nil {
		return payload, err
	}
	if payload.Data.RegistrationID == "" {
		return payload, errors.New("notification has no registration id")
	}
	return payload, nil
}

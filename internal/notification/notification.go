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

package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/internal/request"
	"github.com/sirupsen/logrus"
)

const slackTimeout = 10 * time.Second

func slackMessage(systemError error, at time.Time) json.RawMessage {
	text, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", systemError))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {"type": "plain_text", "text": "Error From Packet Uploader", "emoji": true}
			},
			{
				"type": "section",
				"fields": [{"type": "mrkdwn", "text": %s}]
			},
			{
				"type": "section",
				"fields": [{"type": "mrkdwn", "text": "*Time:*\n%s"}]
			}
		]
	}`, text, at.Format(time.RFC822)))
}

// SlackNotification posts systemError to webhookURL.
func SlackNotification(webhookURL string, systemError error) error {
	payload, err := request.ToJsonReq(slackMessage(systemError, time.Now()))
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, payload)
	if err != nil {
		return err
	}

	_, err = request.Call(&http.Client{Timeout: slackTimeout}, req, nil)
	return err
}

// NotifyError logs systemError and forwards it to Slack when a webhook is
// configured. It never blocks the caller.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Debug(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl == "" {
			return
		}

		if err := SlackNotification(conf.Notification.Slack.WebhookUrl, systemError); err != nil {
			logrus.WithError(err).Warn("slack notification failed")
		}
	}(systemError)
}

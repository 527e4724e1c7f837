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

package main

import (
	"os/signal"
	"syscall"

	"github.com/blnkfinance/uploader"
	pg_listener "github.com/blnkfinance/uploader/internal/pg-listener"
	"github.com/spf13/cobra"
)

// listenCommands enqueues an upload for every registration row inserted
// into the database.
func listenCommands(app *uploaderInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "queue uploads for newly received registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			queue, err := uploader.NewQueue(app.cnf)
			if err != nil {
				return err
			}
			defer queue.Close()

			listener := pg_listener.NewDBListener(pg_listener.ListenerConfig{
				PgConnStr: app.cnf.DataSource.Dns,
			}, queue)
			return listener.Start(ctx)
		},
	}
}

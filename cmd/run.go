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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blnkfinance/uploader"
	redlock "github.com/blnkfinance/uploader/internal/lock"
	redis_db "github.com/blnkfinance/uploader/internal/redis-db"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runCommands runs the stage once, in process, for a single registration id
// under the same upload lock the workers take, and prints the outcome.
func runCommands(app *uploaderInstance) *cobra.Command {
	var stageName string
	cmd := &cobra.Command{
		Use:   "run <registration-id>",
		Short: "run the upload stage for one registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := setupUploader(cmd, app.cnf)
			if err != nil {
				return err
			}
			if stageName == "" {
				stageName = app.cnf.Stage.Name
			}

			rdb, err := redis_db.NewRedisClient([]string{app.cnf.Redis.Dns}, app.cnf.Redis.SkipTLSVerify)
			if err != nil {
				return err
			}
			defer rdb.Client().Close()

			lockTTL := time.Duration(app.cnf.Queue.LockTimeoutSec) * time.Second
			outcome, err := uploader.RunLocked(cmd.Context(), u, rdb.Client(), "cli-"+uuid.NewString(), lockTTL, args[0], stageName)
			if errors.Is(err, redlock.ErrLockHeld) {
				return fmt.Errorf("registration %s is being processed by another worker", args[0])
			}
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(outcome, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&stageName, "stage", "", "stage name recorded on the status row")
	return cmd
}

// enqueueCommands publishes a packet:upload task for the workers.
func enqueueCommands(app *uploaderInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <registration-id>...",
		Short: "queue registrations for upload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := uploader.NewQueue(app.cnf)
			if err != nil {
				return err
			}
			defer queue.Close()

			for _, id := range args {
				info, err := queue.EnqueueUpload(cmd.Context(), id, app.cnf.Stage.Name)
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s queued as task %s\n", id, info.ID)
			}
			return nil
		},
	}
}

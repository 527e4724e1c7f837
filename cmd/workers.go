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
	"context"
	"fmt"
	"net/http"

	"github.com/blnkfinance/uploader"
	"github.com/blnkfinance/uploader/config"
	redis_db "github.com/blnkfinance/uploader/internal/redis-db"
	"github.com/blnkfinance/uploader/internal/scanner"
	"github.com/blnkfinance/uploader/internal/traces"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	opt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues:      map[string]int{conf.Queue.UploadQueue: 1},
		Logger:      logrus.StandardLogger(),
	}), nil
}

// startMonitoring serves asynqmon under /monitoring on the configured port.
func startMonitoring(conf *config.Configuration) error {
	opt, err := redisConnOpt(conf)
	if err != nil {
		return err
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: opt,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		logrus.Infof("asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			logrus.WithError(err).Error("could not start asynqmon server")
		}
	}()
	return nil
}

// workerCommands defines the "workers" command that consumes the upload queue.
func workerCommands(app *uploaderInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start packet upload workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf := app.cnf

			shutdown, err := traces.SetupOTelSDK(ctx, conf.Tracing)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.WithError(err).Warn("error shutting down tracing")
				}
			}()

			u, err := setupUploader(cmd, conf)
			if err != nil {
				return err
			}

			if err := scanner.NewClient(conf.Scanner).Ping(ctx); err != nil {
				logrus.WithError(err).Warn("malware scanner not ready, uploads will be re-scheduled until it answers")
			}

			queue, err := uploader.NewQueue(conf)
			if err != nil {
				return err
			}
			defer queue.Close()

			rdb, err := redis_db.NewRedisClient([]string{conf.Redis.Dns}, conf.Redis.SkipTLSVerify)
			if err != nil {
				return err
			}
			defer rdb.Client().Close()

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				return err
			}

			mux := asynq.NewServeMux()
			uploader.NewWorker(u, queue, rdb.Client(), conf).Register(mux)

			if err := startMonitoring(conf); err != nil {
				return err
			}

			if err := srv.Run(mux); err != nil {
				return fmt.Errorf("could not run server: %w", err)
			}
			return nil
		},
	}

	return cmd
}

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
	"fmt"
	"os"

	"github.com/blnkfinance/uploader"
	"github.com/blnkfinance/uploader/config"
	"github.com/blnkfinance/uploader/database"
	"github.com/blnkfinance/uploader/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Uploader represents the CLI application, encapsulating the root Cobra command.
type Uploader struct {
	cmd *cobra.Command
}

// uploaderInstance holds what every subcommand needs once config is loaded.
type uploaderInstance struct {
	cnf *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration file before any subcommand runs.
func preRun(app *uploaderInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// setupUploader connects to the registration database and wires the
// production landing zone, scanner, decryptor and packet store.
func setupUploader(cmd *cobra.Command, cfg *config.Configuration) (*uploader.Uploader, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		notification.NotifyError(err)
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	u, err := uploader.NewUploaderFromConfig(cmd.Context(), db, cfg)
	if err != nil {
		notification.NotifyError(err)
		return nil, fmt.Errorf("error creating uploader: %v", err)
	}
	return u, nil
}

func NewCLI() *Uploader {
	var configFile string
	app := &uploaderInstance{}

	var rootCmd = &cobra.Command{
		Use:          "uploader",
		Short:        "Registration packet uploader stage",
		SilenceUsage: true,
		Run:          func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./uploader.json", "Configuration file for the uploader")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(runCommands(app))
	rootCmd.AddCommand(enqueueCommands(app))
	rootCmd.AddCommand(listenCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &Uploader{cmd: rootCmd}
}

func (u Uploader) executeCLI() {
	if err := u.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}

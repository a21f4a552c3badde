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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/withhook/hooksync"
	"github.com/withhook/hooksync/config"
)

// HookSyncCLI wraps the root cobra command.
type HookSyncCLI struct {
	cmd *cobra.Command
}

// syncInstance holds the engine and the configuration it was built from, shared by every command.
type syncInstance struct {
	sync *hooksync.HookSync
	cnf  *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the engine before any command runs.
func preRun(app *syncInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		h, err := hooksync.New(cmd.Context(), cnf)
		if err != nil {
			return fmt.Errorf("error creating hooksync: %v", err)
		}

		app.sync = h
		app.cnf = cnf
		return nil
	}
}

func postRun(app *syncInstance) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if app.sync != nil {
			app.sync.Close()
		}
	}
}

func NewCLI() *HookSyncCLI {
	var configFile string
	h := &syncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "hooksync",
		Short: "Offline mutation queue and sync engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./hooksync.json", "Configuration file for hooksync")
	rootCmd.PersistentPreRunE = preRun(h, &configFile)
	rootCmd.PersistentPostRun = postRun(h)

	rootCmd.AddCommand(serverCommands(h))
	rootCmd.AddCommand(queueCommands(h))
	rootCmd.AddCommand(deadLetterCommands(h))
	rootCmd.AddCommand(migrateCommands(h))
	rootCmd.AddCommand(configCommands(h))

	return &HookSyncCLI{cmd: rootCmd}
}

func (w HookSyncCLI) executeCLI() {
	if err := w.cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}

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

	"github.com/spf13/cobra"
)

// migrateCommands rewrites queued records left by older client versions into the current layout.
func migrateCommands(h *syncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate queued mutations to the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := h.sync.Queue.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("error migrating queue: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d mutations!\n", n)
			return nil
		},
	}

	return cmd
}

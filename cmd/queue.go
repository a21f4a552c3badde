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
	"io"

	"github.com/spf13/cobra"

	"github.com/withhook/hooksync/model"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func queueCommands(h *syncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "inspect and manage the offline mutation queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "size",
		Short: "print the number of pending mutations",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), h.sync.Queue.Size(cmd.Context()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "print every pending mutation in queue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), h.sync.Queue.ReadAll(cmd.Context()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "drop every pending mutation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !h.sync.Queue.Clear(cmd.Context()) {
				return errors.New("failed to clear queue")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared!")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "replay pending mutations against the backend now",
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := h.sync.SyncNow(cmd.Context())
			if err != nil {
				return err
			}
			if processed == nil {
				return errors.New("drain skipped: offline or another drain is running")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d mutations, %d remaining\n", len(processed), h.sync.Queue.Size(cmd.Context()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enqueue <type> <json-payload>",
		Short: "append a raw mutation to the queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.MutationType(args[0])
			if !t.Known() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not a known mutation type\n", args[0])
			}
			id, err := h.sync.Queue.EnqueueRaw(cmd.Context(), t, json.RawMessage(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	return cmd
}

func deadLetterCommands(h *syncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadletter",
		Short: "inspect and manage mutations that exhausted their attempts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "print every dead-lettered mutation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), h.sync.Queue.DeadLetters(cmd.Context()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <id>",
		Short: "move a dead-lettered mutation back to the end of the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := h.sync.Queue.RequeueDeadLetter(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "drop every dead-lettered mutation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !h.sync.Queue.PurgeDeadLetters(cmd.Context()) {
				return errors.New("failed to purge dead letters")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dead letters purged!")
			return nil
		},
	})

	return cmd
}

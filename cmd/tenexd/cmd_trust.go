// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage trusted backend pubkeys",
}

var trustApproveCmd = &cobra.Command{
	Use:   "approve <pubkey>",
	Short: "Approve a backend pubkey, releasing its pending statuses",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustApprove,
}

var trustBlockCmd = &cobra.Command{
	Use:   "block <pubkey>",
	Short: "Block a backend pubkey",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustBlock,
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approved, blocked, and pending backend pubkeys",
	RunE:  runTrustList,
}

func init() {
	trustCmd.AddCommand(trustApproveCmd, trustBlockCmd, trustListCmd)
}

func runTrustApprove(cmd *cobra.Command, args []string) error {
	f, err := newFacade()
	if err != nil {
		return err
	}
	if err := f.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	released, err := f.TrustApprove(args[0])
	if err != nil {
		return fmt.Errorf("trust approve: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "approved %s, released %d pending status(es)\n", args[0], released)
	return nil
}

func runTrustBlock(cmd *cobra.Command, args []string) error {
	f, err := newFacade()
	if err != nil {
		return err
	}
	if err := f.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := f.TrustBlock(args[0]); err != nil {
		return fmt.Errorf("trust block: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", args[0])
	return nil
}

func runTrustList(cmd *cobra.Command, args []string) error {
	f, err := newFacade()
	if err != nil {
		return err
	}
	if err := f.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	snap, err := f.TrustList()
	if err != nil {
		return fmt.Errorf("trust list: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "approved:")
	for _, pk := range snap.Approved {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", pk)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "blocked:")
	for _, pk := range snap.Blocked {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", pk)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "pending:")
	for _, p := range snap.Pending {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (first seen %d)\n", p.BackendPubkey, p.FirstSeenUnix)
	}
	return nil
}

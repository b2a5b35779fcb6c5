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

	"github.com/tenex-chat/tui-sub004/internal/facade"
)

var bunkerCmd = &cobra.Command{
	Use:   "bunker",
	Short: "Manage the NIP-46 remote-signing service",
}

var bunkerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bunker and print its connection URI",
	RunE:  runBunkerStart,
}

var bunkerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the bunker",
	RunE:  runBunkerStop,
}

var bunkerAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the bunker's audit log",
	RunE:  runBunkerAudit,
}

func init() {
	bunkerCmd.AddCommand(bunkerStartCmd, bunkerStopCmd, bunkerAuditCmd)
}

func bunkerFacade() (*facade.Facade, error) {
	nsec, err := loadSavedIdentity()
	if err != nil {
		return nil, err
	}
	f, err := newFacade()
	if err != nil {
		return nil, err
	}
	if err := f.Init(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := f.Login(nsec); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return f, nil
}

func runBunkerStart(cmd *cobra.Command, args []string) error {
	f, err := bunkerFacade()
	if err != nil {
		return err
	}
	uri, err := f.BunkerStart()
	if err != nil {
		return fmt.Errorf("bunker start: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), uri)
	return nil
}

func runBunkerStop(cmd *cobra.Command, args []string) error {
	f, err := bunkerFacade()
	if err != nil {
		return err
	}
	if err := f.BunkerStop(); err != nil {
		return fmt.Errorf("bunker stop: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "bunker stopped")
	return nil
}

func runBunkerAudit(cmd *cobra.Command, args []string) error {
	f, err := bunkerFacade()
	if err != nil {
		return err
	}
	entries, err := f.BunkerAudit()
	if err != nil {
		return fmt.Errorf("bunker audit: %w", err)
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s %s\n", e.TimestampMs, e.RequesterPubkey, e.RequestType, e.Decision)
	}
	return nil
}

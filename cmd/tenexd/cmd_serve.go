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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tenex-chat/tui-sub004/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the façade in the foreground until interrupted",
	Long:  `A placeholder host process: logs in with the saved signer key, prints every delta to stdout, and disconnects cleanly on SIGINT/SIGTERM. No UI frontend is wired here; real frontends embed internal/facade directly.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	nsec, err := loadSavedIdentity()
	if err != nil {
		return err
	}

	f, err := newFacade()
	if err != nil {
		return err
	}
	if err := f.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := f.Login(nsec); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	f.SetCallback(func(d domain.Delta) {
		fmt.Fprintf(cmd.OutOrStdout(), "delta: kind=%d conversation=%s\n", d.Kind, d.ConversationID)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	fmt.Fprintln(cmd.OutOrStdout(), "serving; press Ctrl+C to stop")
	<-sig

	return f.Logout()
}

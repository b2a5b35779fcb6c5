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
	"github.com/tenex-chat/tui-sub004/internal/secretstore"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Disconnect and wipe the local event-store cache",
	Long:  `Re-establishes the last logged-in identity just long enough to drive a clean façade Logout, then clears the saved signer key.`,
	RunE:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
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
	if err := f.Logout(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if err := secretstore.New().Delete(facade.SecretAccountSignerKey); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to clear saved signer key: %v\n", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}

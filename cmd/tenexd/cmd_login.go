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

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/spf13/cobra"

	"github.com/tenex-chat/tui-sub004/internal/facade"
	"github.com/tenex-chat/tui-sub004/internal/secretstore"
)

var loginNsec string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect to the event network with a signer identity",
	Long:  `Parses --nsec, connects standing subscriptions, and persists the signer key to the OS keyring for subsequent commands.`,
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginNsec, "nsec", "", "bech32-encoded private key (nsec1...)")
	_ = loginCmd.MarkFlagRequired("nsec")
}

func runLogin(cmd *cobra.Command, args []string) error {
	f, err := newFacade()
	if err != nil {
		return err
	}
	if err := f.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := f.Login(loginNsec); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	_, value, _ := nip19.Decode(loginNsec)
	sk, _ := value.(string)
	pk, _ := nostr.GetPublicKey(sk)
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", pk)
	return nil
}

// loadSavedIdentity reconstructs an nsec from the keyring-persisted
// signer key, for commands that run against an already-logged-in
// identity without the user re-pasting their nsec.
func loadSavedIdentity() (string, error) {
	store := secretstore.New()
	sk, ok, err := store.Get(facade.SecretAccountSignerKey)
	if err != nil {
		return "", fmt.Errorf("read signer key: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("no saved signer key; run 'tenexd login --nsec <nsec>' first")
	}
	return nip19.EncodePrivateKey(sk)
}

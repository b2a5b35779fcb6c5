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

// Package secretstore routes secrets (the signer's secret key, third-
// party API keys) through the OS-backed secret store instead of any
// JSON preferences file.
package secretstore

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "tenex"

// Store is a keyring-backed secret store keyed by service name plus a
// caller-chosen account label (e.g. "signer-nsec", "elevenlabs-api-key").
type Store struct {
	serviceName string
}

// New builds a Store under the default "tenex" keyring service.
func New() *Store { return &Store{serviceName: service} }

// NewWithService builds a Store under a caller-chosen service name,
// useful for test isolation.
func NewWithService(name string) *Store { return &Store{serviceName: name} }

// Set stores secret under account.
func (s *Store) Set(account, secret string) error {
	if err := keyring.Set(s.serviceName, account, secret); err != nil {
		return fmt.Errorf("secretstore: set %q: %w", account, err)
	}
	return nil
}

// Get retrieves the secret stored under account. ok is false if no
// entry exists.
func (s *Store) Get(account string) (secret string, ok bool, err error) {
	secret, err = keyring.Get(s.serviceName, account)
	if err == keyring.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("secretstore: get %q: %w", account, err)
	}
	return secret, true, nil
}

// Delete removes the secret stored under account; a missing entry is
// not an error.
func (s *Store) Delete(account string) error {
	err := keyring.Delete(s.serviceName, account)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("secretstore: delete %q: %w", account, err)
	}
	return nil
}

// Well-known account labels.
const (
	AccountSignerNsec = "signer-nsec"
)

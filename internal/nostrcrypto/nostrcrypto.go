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

// Package nostrcrypto isolates the NIP-04/NIP-44 envelope encryption
// calls behind a narrow surface so the rest of the bunker subsystem
// never imports go-nostr's crypto subpackages directly.
package nostrcrypto

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/nbd-wtf/go-nostr/nip44"
)

// DecryptEnvelope tries NIP-44 first (the modern format), falling back
// to NIP-04 for legacy requesters, mirroring the bunker's own
// nip44::decrypt-with-fallback behavior.
func DecryptEnvelope(ourPrivkeyHex, theirPubkeyHex, content string) (string, error) {
	if plaintext, err := decryptNip44(ourPrivkeyHex, theirPubkeyHex, content); err == nil {
		return plaintext, nil
	}
	plaintext, err := decryptNip04(ourPrivkeyHex, theirPubkeyHex, content)
	if err != nil {
		return "", fmt.Errorf("nostrcrypto: decrypt failed under both nip44 and nip04: %w", err)
	}
	return plaintext, nil
}

// EncryptNip44 encrypts plaintext to theirPubkeyHex under NIP-44.
func EncryptNip44(ourPrivkeyHex, theirPubkeyHex, plaintext string) (string, error) {
	key, err := nip44.GenerateConversationKey(theirPubkeyHex, ourPrivkeyHex)
	if err != nil {
		return "", err
	}
	return nip44.Encrypt(plaintext, key)
}

func decryptNip44(ourPrivkeyHex, theirPubkeyHex, content string) (string, error) {
	key, err := nip44.GenerateConversationKey(theirPubkeyHex, ourPrivkeyHex)
	if err != nil {
		return "", err
	}
	return nip44.Decrypt(content, key)
}

// EncryptNip04 encrypts plaintext to theirPubkeyHex under NIP-04.
func EncryptNip04(ourPrivkeyHex, theirPubkeyHex, plaintext string) (string, error) {
	shared, err := nip04.ComputeSharedSecret(theirPubkeyHex, ourPrivkeyHex)
	if err != nil {
		return "", err
	}
	return nip04.Encrypt(plaintext, shared)
}

// DecryptNip04 decrypts content from theirPubkeyHex under NIP-04.
func DecryptNip04(ourPrivkeyHex, theirPubkeyHex, content string) (string, error) {
	return decryptNip04(ourPrivkeyHex, theirPubkeyHex, content)
}

func decryptNip04(ourPrivkeyHex, theirPubkeyHex, content string) (string, error) {
	shared, err := nip04.ComputeSharedSecret(theirPubkeyHex, ourPrivkeyHex)
	if err != nil {
		return "", err
	}
	return nip04.Decrypt(content, shared)
}

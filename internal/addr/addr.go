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

// Package addr implements the "K:P:D" address identifying a replaceable
// entity by (kind, author pubkey, d-tag).
package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a replaceable entity.
type Address struct {
	Kind   int
	Pubkey string
	D      string
}

// New builds an Address.
func New(kind int, pubkey, d string) Address {
	return Address{Kind: kind, Pubkey: pubkey, D: d}
}

// String renders the "K:P:D" form.
func (a Address) String() string {
	return fmt.Sprintf("%d:%s:%s", a.Kind, a.Pubkey, a.D)
}

// Parse decodes a "K:P:D" string. D may itself contain colons; only the
// first two are treated as separators.
func Parse(s string) (Address, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("addr: malformed address %q", s)
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return Address{}, fmt.Errorf("addr: bad kind in %q: %w", s, err)
	}
	return Address{Kind: kind, Pubkey: parts[1], D: parts[2]}, nil
}

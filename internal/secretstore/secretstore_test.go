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

package secretstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	m.Run()
}

func TestSetGetDelete(t *testing.T) {
	s := NewWithService("tenex-test")

	_, ok, err := s.Get(AccountSignerNsec)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(AccountSignerNsec, "nsec1abc"))

	got, ok, err := s.Get(AccountSignerNsec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "nsec1abc", got)

	require.NoError(t, s.Delete(AccountSignerNsec))
	_, ok, err = s.Get(AccountSignerNsec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteMissingIsNotError(t *testing.T) {
	s := NewWithService("tenex-test-missing")
	assert.NoError(t, s.Delete("never-set"))
}

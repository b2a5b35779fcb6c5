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

package tenexconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSpecTimeouts(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 5*time.Second, cfg.DisconnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 30*time.Second, cfg.ForceReconnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.BunkerApprovalTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ProjectStatusStaleAfter)
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.RelayURLs)
}

func TestLoadFromFileOverridesDataDir(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_dir: "+filepath.Join(dir, "data")+"\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
}

func TestPathHelpers(t *testing.T) {
	cfg := Config{DataDir: "/tmp/tenex"}
	assert.Equal(t, "/tmp/tenex/preferences.json", cfg.PreferencesPath())
	assert.Equal(t, "/tmp/tenex/drafts.json", cfg.DraftsPath())
	assert.Equal(t, "/tmp/tenex/project_drafts.json", cfg.ProjectDraftsPath())
	assert.Equal(t, "/tmp/tenex/state_cache.bin", cfg.StateCachePath())
	assert.Equal(t, "/tmp/tenex/tenex.log", cfg.LogPath())
}

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

// Package tenexconfig holds the façade's ambient knobs: data directory,
// relay urls, and the timing constants governing refresh, reconnect,
// and bunker approval. CLI argument parsing itself lives in cmd/tenexd;
// this package is the config struct and loader only.
package tenexconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TENEX"

// Config holds every ambient knob the façade and session need.
// Priority: env vars > config file > defaults.
type Config struct {
	DataDir   string   `mapstructure:"data_dir"`
	RelayURLs []string `mapstructure:"relay_urls"`

	RefreshQuietWindow time.Duration `mapstructure:"refresh_quiet_window"`
	RefreshPollCap     time.Duration `mapstructure:"refresh_poll_cap"`
	RefreshThrottle    time.Duration `mapstructure:"refresh_throttle"`

	DisconnectTimeout   time.Duration `mapstructure:"disconnect_timeout"`
	PublishTimeout      time.Duration `mapstructure:"publish_timeout"`
	ForceReconnectTimeout time.Duration `mapstructure:"force_reconnect_timeout"`
	BunkerApprovalTimeout time.Duration `mapstructure:"bunker_approval_timeout"`

	ProjectStatusStaleAfter time.Duration `mapstructure:"project_status_stale_after"`
}

// Defaults builds the configuration the spec names: a 400ms quiet
// window, a 2s poll cap, a 50ms refresh-throttle, 5s/10s/30s/60s
// lifecycle timeouts, and a 5-minute status staleness threshold.
func Defaults() Config {
	return Config{
		DataDir:                 defaultDataDir(),
		RelayURLs:               []string{"wss://relay.primal.net"},
		RefreshQuietWindow:      400 * time.Millisecond,
		RefreshPollCap:          2 * time.Second,
		RefreshThrottle:         50 * time.Millisecond,
		DisconnectTimeout:       5 * time.Second,
		PublishTimeout:          10 * time.Second,
		ForceReconnectTimeout:   30 * time.Second,
		BunkerApprovalTimeout:   60 * time.Second,
		ProjectStatusStaleAfter: 5 * time.Minute,
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("TENEX_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tenex"
	}
	return filepath.Join(home, ".tenex")
}

// Load reads configFile (if non-empty and present) and environment
// variables prefixed TENEX_ over top of Defaults(), mirroring the
// teacher's viper-based cmd/looms/config.go load order.
func Load(configFile string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("tenexconfig: read %s: %w", configFile, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("tenexconfig: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("relay_urls", cfg.RelayURLs)
	v.SetDefault("refresh_quiet_window", cfg.RefreshQuietWindow)
	v.SetDefault("refresh_poll_cap", cfg.RefreshPollCap)
	v.SetDefault("refresh_throttle", cfg.RefreshThrottle)
	v.SetDefault("disconnect_timeout", cfg.DisconnectTimeout)
	v.SetDefault("publish_timeout", cfg.PublishTimeout)
	v.SetDefault("force_reconnect_timeout", cfg.ForceReconnectTimeout)
	v.SetDefault("bunker_approval_timeout", cfg.BunkerApprovalTimeout)
	v.SetDefault("project_status_stale_after", cfg.ProjectStatusStaleAfter)
}

// EventStoreDir returns the directory holding data.mdb/lock.mdb.
func (c Config) EventStoreDir() string { return c.DataDir }

// PreferencesPath returns the path to preferences.json.
func (c Config) PreferencesPath() string { return filepath.Join(c.DataDir, "preferences.json") }

// DraftsPath returns the path to drafts.json.
func (c Config) DraftsPath() string { return filepath.Join(c.DataDir, "drafts.json") }

// ProjectDraftsPath returns the path to project_drafts.json.
func (c Config) ProjectDraftsPath() string { return filepath.Join(c.DataDir, "project_drafts.json") }

// StateCachePath returns the path to state_cache.bin.
func (c Config) StateCachePath() string { return filepath.Join(c.DataDir, "state_cache.bin") }

// LogPath returns the path to tenex.log.
func (c Config) LogPath() string { return filepath.Join(c.DataDir, "tenex.log") }

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

	"github.com/spf13/cobra"

	"github.com/tenex-chat/tui-sub004/internal/facade"
	"github.com/tenex-chat/tui-sub004/internal/tenexconfig"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "tenexd",
	Short:   "tenexd drives the event-network client runtime from the command line",
	Long:    `tenexd builds and exits a façade over one login/logout/bunker/trust operation at a time; it is not a long-running server except under "serve".`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; no file is read when unset)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bunkerCmd)
	rootCmd.AddCommand(trustCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newFacade loads config and builds an Uninitialized façade; callers
// must Init it before use.
func newFacade() (*facade.Facade, error) {
	cfg, err := tenexconfig.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return facade.New(cfg), nil
}

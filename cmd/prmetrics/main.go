// Copyright 2025 ImpactLens, Inc.
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/impactlens/prmetrics/pkg/version"
)

func main() {
	// Best effort: local development keeps GITHUB_* settings in a .env file.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "prmetrics",
		Short: "Extract per-PR engineering metrics from GitHub repositories",
		Long: `prmetrics fetches merged pull requests from a GitHub repository over
the GraphQL API and turns them into per-PR engineering metric records:
AI-assistance detection, review and comment activity, time to merge, and
change size. Results are cached on disk so repeated and incremental runs
minimize API calls.`,
		Version:       version.Version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
	}

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newCacheCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

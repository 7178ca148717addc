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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/impactlens/prmetrics/internal/cache"
	"github.com/impactlens/prmetrics/internal/config"
)

// newCacheCommand builds the cache command group.
func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk fetch cache",
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

// newCacheClearCommand builds the cache clear subcommand. Clearing one
// query requires the same parameters the fetch used, since the cache is
// keyed by their fingerprint.
func newCacheClearCommand() *cobra.Command {
	var (
		configPath string
		cacheDir   string
		startDate  string
		endDate    string
		author     string
		clearAll   bool
	)

	cmd := &cobra.Command{
		Use:   "clear [<owner>/<repo>]",
		Short: "Clear cached fetch results",
		Long: `Clear cached fetch results.

With --all, every cached record file and the whole index are removed.
Otherwise the repository, --start and --end (and --author, if the fetch
used one) identify the single query whose cache entry is cleared.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				owner, repo, err := parseRepository(args[0])
				if err != nil {
					return err
				}
				cfg.GitHub.Owner = owner
				cfg.GitHub.Repo = repo
			}
			if cacheDir != "" {
				cfg.Cache.Dir = cacheDir
			}

			store, err := cache.NewStore(cfg.Cache.Dir, zap.NewNop())
			if err != nil {
				return err
			}

			if clearAll {
				if err := store.ClearAll(); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Cleared all cached results in %s\n", cfg.Cache.Dir)
				return nil
			}

			if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" || startDate == "" || endDate == "" {
				return fmt.Errorf("clearing a single query requires <owner>/<repo>, --start and --end (or use --all)")
			}

			fingerprint := cache.Fingerprint(cfg.GitHub.Owner, cfg.GitHub.Repo, startDate, endDate, author)
			if err := store.Clear(fingerprint); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Cleared cache for %s/%s %s..%s\n",
				cfg.GitHub.Owner, cfg.GitHub.Repo, startDate, endDate)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: auto-discover)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: .cache/github)")
	cmd.Flags().StringVar(&startDate, "start", "", "Start date of the query to clear, YYYY-MM-DD")
	cmd.Flags().StringVar(&endDate, "end", "", "End date of the query to clear, YYYY-MM-DD")
	cmd.Flags().StringVar(&author, "author", "", "Author filter of the query to clear")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Clear the entire cache directory")

	return cmd
}

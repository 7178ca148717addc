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
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/impactlens/prmetrics/internal/bots"
	"github.com/impactlens/prmetrics/internal/cache"
	"github.com/impactlens/prmetrics/internal/config"
	ilerrors "github.com/impactlens/prmetrics/internal/errors"
	"github.com/impactlens/prmetrics/internal/github"
	"github.com/impactlens/prmetrics/internal/ingest"
	"github.com/impactlens/prmetrics/internal/output"
)

// fetchFlags holds everything the fetch command collects from the CLI.
type fetchFlags struct {
	configPath  string
	token       string
	cacheDir    string
	startDate   string
	endDate     string
	author      string
	outputFile  string
	noCache     bool
	incremental bool
	timeout     time.Duration
	verbose     bool
}

// newFetchCommand builds the fetch command.
func newFetchCommand() *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch [<owner>/<repo>]",
		Short: "Fetch merged PR metric records for a date range",
		Long: `Fetch merged pull requests for a date range and output one metric
record per PR in NDJSON format.

The repository is given as <owner>/<repo> (for example: golang/go) or via
the GITHUB_REPO_OWNER / GITHUB_REPO_NAME environment variables.

Authentication is required via GitHub token:
  - Use --token flag to provide token directly
  - Or set GITHUB_TOKEN environment variable

Results are cached under the cache directory keyed by the query parameters.
A repeated identical query is served from cache without network calls;
--incremental fetches only the window since the last run and merges it with
the cached records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()

			repoArg := ""
			if len(args) == 1 {
				repoArg = args[0]
			}
			return runFetch(ctx, repoArg, flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to config file (default: auto-discover)")
	cmd.Flags().StringVar(&flags.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory (default: .cache/github)")
	cmd.Flags().StringVar(&flags.startDate, "start", "", "Start of the merge-date window, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&flags.endDate, "end", "", "End of the merge-date window, YYYY-MM-DD, inclusive (required)")
	cmd.Flags().StringVar(&flags.author, "author", "", "Only include PRs by this author")
	cmd.Flags().StringVar(&flags.outputFile, "output", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Bypass the cache entirely")
	cmd.Flags().BoolVar(&flags.incremental, "incremental", false, "Only fetch the window since the last run, then merge with cached records")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Minute, "Deadline for the whole fetch")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Log per-page diagnostics")

	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

// runFetch executes the fetch command.
func runFetch(ctx context.Context, repoArg string, flags fetchFlags) error {
	cfg, err := loadConfig(repoArg, flags.configPath, flags.token, flags.cacheDir)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(flags.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := cache.NewStore(cfg.Cache.Dir, logger)
	if err != nil {
		return err
	}

	var writer *output.Writer
	if flags.outputFile == "" {
		writer = output.NewWriter(os.Stdout)
	} else {
		writer, err = output.NewFileWriter(flags.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
	}
	defer writer.Close()

	client := github.NewGraphQLClient(cfg.GitHub.Token, cfg.GraphQLEndpoint())
	registry := bots.NewRegistry(cfg.Bots.ExtraAccounts, cfg.Bots.MentionHandles)
	service := ingest.NewService(client, store, registry, ingest.WithServiceLogger(logger))

	records, err := service.Fetch(ctx, ingest.FetchRequest{
		Owner:       cfg.GitHub.Owner,
		Repo:        cfg.GitHub.Repo,
		Start:       flags.startDate,
		End:         flags.endDate,
		Author:      flags.author,
		UseCache:    !flags.noCache,
		Incremental: flags.incremental,
	})
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if writer.Count() > 0 {
		fmt.Fprintf(os.Stderr, "Fetched %d merged pull requests\n", writer.Count())
	} else {
		fmt.Fprintf(os.Stderr, "No merged pull requests found in %s/%s for %s..%s\n",
			cfg.GitHub.Owner, cfg.GitHub.Repo, flags.startDate, flags.endDate)
	}

	return nil
}

// loadConfig merges the config file, environment, and CLI overrides.
func loadConfig(repoArg, configPath, token, cacheDir string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if repoArg != "" {
		owner, repo, err := parseRepository(repoArg)
		if err != nil {
			return nil, err
		}
		cfg.GitHub.Owner = owner
		cfg.GitHub.Repo = repo
	}
	if token != "" {
		cfg.GitHub.Token = token
	}
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}

	return cfg, nil
}

// newLogger builds a stderr logger; verbose enables per-page info logs.
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}

// parseRepository parses an owner/repo string into its components.
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// mapErrorToExitCode maps internal errors to appropriate exit codes.
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, ilerrors.ErrMissingConfig) ||
		errors.Is(err, ilerrors.ErrInvalidToken) ||
		errors.Is(err, ilerrors.ErrRepoNotFound) ||
		errors.Is(err, ilerrors.ErrRateLimit) {
		return 2 // Configuration/authorization errors
	}

	if errors.Is(err, ilerrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}

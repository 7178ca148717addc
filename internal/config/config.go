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

// Package config provides configuration management for prmetrics with
// support for multiple configuration sources and a well-defined precedence
// order:
//
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
//
// Configuration files are YAML and are discovered in standard locations
// when no path is given explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ilerrors "github.com/impactlens/prmetrics/internal/errors"
)

// LoadConfig loads configuration from multiple sources and applies them in
// precedence order. If configPath is provided, it loads from that specific
// file. Otherwise it searches standard locations:
//   - .prmetrics.yaml (current directory)
//   - .prmetrics.yml (current directory)
//   - ~/.prmetrics/config.yaml
//   - ~/.prmetrics/config.yml
//
// Environment variables are applied after the config file, allowing runtime
// overrides. Returns an error if an explicitly specified file cannot be
// loaded, but succeeds with defaults if no file is found in the standard
// locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".prmetrics.yaml",
			".prmetrics.yml",
			filepath.Join(os.Getenv("HOME"), ".prmetrics", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".prmetrics", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)

	return cfg, nil
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if owner := os.Getenv("GITHUB_REPO_OWNER"); owner != "" {
		cfg.GitHub.Owner = owner
	}
	if repo := os.Getenv("GITHUB_REPO_NAME"); repo != "" {
		cfg.GitHub.Repo = repo
	}
	if baseURL := os.Getenv("GITHUB_URL"); baseURL != "" {
		cfg.GitHub.BaseURL = baseURL
	}
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}
	if cacheDir := os.Getenv("PRMETRICS_CACHE_DIR"); cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}
}

// GraphQLEndpoint returns the effective GraphQL endpoint. An explicit
// endpoint wins; otherwise it is derived from the base Git URL:
//
//	https://github.com        -> https://api.github.com/graphql
//	https://gitlab.com        -> https://gitlab.com/api/graphql
//	https://git.example.com   -> https://git.example.com/api/graphql
func (c *Config) GraphQLEndpoint() string {
	if c.GitHub.GraphQLEndpoint != "" {
		return c.GitHub.GraphQLEndpoint
	}
	base := strings.TrimRight(c.GitHub.BaseURL, "/")
	if base == "https://github.com" {
		return "https://api.github.com/graphql"
	}
	return base + "/api/graphql"
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// Validate checks that everything needed before the first network call is
// present: repository coordinates, credential token and a usable endpoint.
func (c *Config) Validate() error {
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("repository owner and name are required. Set GITHUB_REPO_OWNER and GITHUB_REPO_NAME or pass <owner>/<repo>: %w", ilerrors.ErrMissingConfig)
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("GitHub token is required. Set GITHUB_TOKEN or use the --token flag: %w", ilerrors.ErrMissingConfig)
	}
	if c.GraphQLEndpoint() == "" {
		return fmt.Errorf("GraphQL endpoint cannot be empty: %w", ilerrors.ErrMissingConfig)
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache directory cannot be empty: %w", ilerrors.ErrMissingConfig)
	}
	return nil
}

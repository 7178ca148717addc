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

// Package config types define the configuration structures used throughout
// prmetrics. These represent settings loaded from YAML configuration files,
// environment variables, or command-line flags.
package config

// Config represents the complete configuration for prmetrics. It
// consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	Cache  CacheConfig  `yaml:"cache"`
	Bots   BotsConfig   `yaml:"bots"`
}

// GitHubConfig contains the repository coordinates and endpoint settings.
// BaseURL supports GitHub, GitHub Enterprise and GitLab instances; the
// GraphQL endpoint is derived from it unless set explicitly.
type GitHubConfig struct {
	BaseURL         string `yaml:"base_url"`
	GraphQLEndpoint string `yaml:"graphql_endpoint"`
	Owner           string `yaml:"owner"`
	Repo            string `yaml:"repo"`
	Token           string `yaml:"token"`
}

// CacheConfig controls where fetched records are persisted.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// BotsConfig extends the built-in bot account list with site-specific
// automation accounts and @-mention handles.
type BotsConfig struct {
	ExtraAccounts  []string `yaml:"extra_accounts"`
	MentionHandles []string `yaml:"mention_handles"`
}

// DefaultConfig returns the built-in defaults, the lowest-precedence
// configuration source.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL: "https://github.com",
		},
		Cache: CacheConfig{
			Dir: ".cache/github",
		},
	}
}

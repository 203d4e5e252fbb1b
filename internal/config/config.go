// Package config loads the dispatcher's configuration: GitHub App
// credentials, bot/reviewer identities, retry/project-board settings,
// and per-runClaude-kind adapter/model routing. Grounded on teacher
// internal/config/config.go's spf13/viper + mapstructure stack,
// generalized from per-VM-session fields to per-dispatch fields.
package config

import (
	"fmt"
	"strings"

	"github.com/nopo-automation/issuebot/internal/routing"
	"github.com/spf13/viper"
)

// Config is the dispatcher's full configuration.
type Config struct {
	GitHub  GitHubConfig         `mapstructure:"github"`
	Claude  ClaudeConfig         `mapstructure:"claude"`
	Codex   CodexConfig          `mapstructure:"codex"`
	Bot     BotConfig            `mapstructure:"bot"`
	Project ProjectBoardConfig   `mapstructure:"project"`
	Routing routing.PhaseRouting `mapstructure:"routing"`
	Langfuse LangfuseConfig      `mapstructure:"langfuse"`
	Memory   MemoryConfig        `mapstructure:"memory"`
}

// LangfuseConfig holds optional Langfuse tracing credentials. Empty
// PublicKey/SecretKey leaves runClaude tracing a no-op.
type LangfuseConfig struct {
	PublicKey string `mapstructure:"public_key"`
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url"`
}

// MemoryConfig bounds the cross-iteration signal store internal/memory
// keeps in the Agent's checkout directory.
type MemoryConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxEntries    int  `mapstructure:"max_entries"`
	ContextBudget int  `mapstructure:"context_budget"`
}

// GitHubConfig contains GitHub App authentication settings consumed by
// internal/ghclient's ghinstallation-backed transport.
type GitHubConfig struct {
	AppID            int64  `mapstructure:"app_id"`
	InstallationID   int64  `mapstructure:"installation_id"`
	PrivateKeySecret string `mapstructure:"private_key_secret"`
	Owner            string `mapstructure:"owner"`
	Repo             string `mapstructure:"repo"`
}

// ClaudeConfig contains Claude authentication settings for the claude-code
// agent adapter.
type ClaudeConfig struct {
	AuthMode     string `mapstructure:"auth_mode"` // "api" (default) or "oauth"
	AuthJSONPath string `mapstructure:"auth_json_path"`
}

// CodexConfig contains Codex agent authentication settings.
type CodexConfig struct {
	AuthJSONPath string `mapstructure:"auth_json_path"`
}

// BotConfig names the reserved identities the router and runner use to
// recognize and act as the bot (spec.md §4.4's universal skip rule 5 and
// §4.6's requestReviewer/removeReviewer actions).
type BotConfig struct {
	Username          string `mapstructure:"username"`
	ReviewerUsername  string `mapstructure:"reviewer_username"`
	MaxRetries        int    `mapstructure:"max_retries"`
	ConcurrencyPrefix string `mapstructure:"concurrency_prefix"`
	Agent             string `mapstructure:"agent"`        // claude-code, codex, aider
	AgentBinary       string `mapstructure:"agent_binary"` // CLI executable name on PATH
	DryRun            bool   `mapstructure:"dry_run"`
}

// ProjectBoardConfig identifies the GitHub Projects v2 board the
// Action Runner writes Status/Iteration/Failures fields to.
type ProjectBoardConfig struct {
	Number int `mapstructure:"number"`
}

// Load loads configuration from file and environment via viper (the
// caller is expected to have already called viper.SetConfigFile /
// AutomaticEnv, matching teacher's root command wiring).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalizeRoutingKeys(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// normalizeRoutingKeys lower-cases routing override keys, since viper's
// mapstructure decoding lower-cases map keys read from YAML/env but a
// hand-built Config (tests, fixtures) might not. Router.ModelForPhase
// is looked up with a lower-cased actions.RunClaudeKind to match.
func normalizeRoutingKeys(cfg *Config) {
	if len(cfg.Routing.Overrides) == 0 {
		return
	}
	normalized := make(map[string]routing.ModelConfig, len(cfg.Routing.Overrides))
	for key, val := range cfg.Routing.Overrides {
		normalized[strings.ToLower(key)] = val
	}
	cfg.Routing.Overrides = normalized
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Username == "" {
		cfg.Bot.Username = "nopo-bot"
	}
	if cfg.Bot.ReviewerUsername == "" {
		cfg.Bot.ReviewerUsername = "nopo-reviewer"
	}
	if cfg.Bot.MaxRetries == 0 {
		cfg.Bot.MaxRetries = 3
	}
	if cfg.Bot.ConcurrencyPrefix == "" {
		cfg.Bot.ConcurrencyPrefix = "issuebot"
	}
	if cfg.Bot.Agent == "" {
		cfg.Bot.Agent = "claude-code"
	}
	if cfg.Bot.AgentBinary == "" {
		cfg.Bot.AgentBinary = "claude"
	}
	if cfg.Claude.AuthMode == "" {
		cfg.Claude.AuthMode = "api"
	}
	if cfg.Claude.AuthJSONPath == "" {
		cfg.Claude.AuthJSONPath = "~/.config/claude-code/auth.json"
	}
	if cfg.Codex.AuthJSONPath == "" {
		cfg.Codex.AuthJSONPath = "~/.codex/auth.json"
	}
}

// Validate checks the configuration required to run a dispatch.
func (c *Config) Validate() error {
	if c.GitHub.AppID == 0 {
		return fmt.Errorf("GitHub App ID is required")
	}
	if c.GitHub.InstallationID == 0 {
		return fmt.Errorf("GitHub App Installation ID is required")
	}
	if c.GitHub.PrivateKeySecret == "" {
		return fmt.Errorf("GitHub App private key secret path is required")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("github.owner and github.repo are required")
	}

	validAgents := map[string]bool{"claude-code": true, "aider": true, "codex": true}
	if !validAgents[c.Bot.Agent] {
		return fmt.Errorf("invalid agent: %s (must be claude-code, aider, or codex)", c.Bot.Agent)
	}

	validAuthModes := map[string]bool{"api": true, "oauth": true}
	if !validAuthModes[c.Claude.AuthMode] {
		return fmt.Errorf("invalid claude auth_mode: %s (must be api or oauth)", c.Claude.AuthMode)
	}
	if c.Claude.AuthMode == "oauth" && c.Bot.Agent != "claude-code" {
		return fmt.Errorf("oauth auth_mode is only supported with the claude-code agent")
	}

	return nil
}

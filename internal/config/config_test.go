package config

import (
	"testing"

	"github.com/nopo-automation/issuebot/internal/routing"
)

func validGitHub() GitHubConfig {
	return GitHubConfig{
		AppID:            123456,
		InstallationID:   789012,
		PrivateKeySecret: "projects/test/secrets/key",
		Owner:            "acme",
		Repo:             "widgets",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid config",
			config: Config{GitHub: validGitHub(), Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "api"}},
		},
		{
			name:    "missing app id",
			config:  Config{GitHub: GitHubConfig{InstallationID: 1, PrivateKeySecret: "x", Owner: "a", Repo: "b"}, Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "api"}},
			wantErr: "GitHub App ID is required",
		},
		{
			name:    "missing installation id",
			config:  Config{GitHub: GitHubConfig{AppID: 1, PrivateKeySecret: "x", Owner: "a", Repo: "b"}, Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "api"}},
			wantErr: "GitHub App Installation ID is required",
		},
		{
			name:    "missing private key secret",
			config:  Config{GitHub: GitHubConfig{AppID: 1, InstallationID: 1, Owner: "a", Repo: "b"}, Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "api"}},
			wantErr: "GitHub App private key secret path is required",
		},
		{
			name:    "missing owner/repo",
			config:  Config{GitHub: GitHubConfig{AppID: 1, InstallationID: 1, PrivateKeySecret: "x"}, Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "api"}},
			wantErr: "github.owner and github.repo are required",
		},
		{
			name:    "invalid agent",
			config:  Config{GitHub: validGitHub(), Bot: BotConfig{Agent: "bogus"}, Claude: ClaudeConfig{AuthMode: "api"}},
			wantErr: "invalid agent",
		},
		{
			name:    "oauth with non-claude agent",
			config:  Config{GitHub: validGitHub(), Bot: BotConfig{Agent: "aider"}, Claude: ClaudeConfig{AuthMode: "oauth"}},
			wantErr: "oauth auth_mode is only supported with the claude-code agent",
		},
		{
			name:   "oauth with claude-code agent",
			config: Config{GitHub: validGitHub(), Bot: BotConfig{Agent: "claude-code"}, Claude: ClaudeConfig{AuthMode: "oauth"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !containsString(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	if cfg.Bot.Username != "nopo-bot" {
		t.Errorf("Bot.Username = %q, want nopo-bot", cfg.Bot.Username)
	}
	if cfg.Bot.ReviewerUsername != "nopo-reviewer" {
		t.Errorf("Bot.ReviewerUsername = %q, want nopo-reviewer", cfg.Bot.ReviewerUsername)
	}
	if cfg.Bot.MaxRetries != 3 {
		t.Errorf("Bot.MaxRetries = %d, want 3", cfg.Bot.MaxRetries)
	}
	if cfg.Bot.Agent != "claude-code" {
		t.Errorf("Bot.Agent = %q, want claude-code", cfg.Bot.Agent)
	}
	if cfg.Bot.AgentBinary != "claude" {
		t.Errorf("Bot.AgentBinary = %q, want claude", cfg.Bot.AgentBinary)
	}
	if cfg.Claude.AuthMode != "api" {
		t.Errorf("Claude.AuthMode = %q, want api", cfg.Claude.AuthMode)
	}
}

func TestApplyDefaultsDoesNotOverrideExisting(t *testing.T) {
	cfg := Config{Bot: BotConfig{Agent: "aider", MaxRetries: 5}}
	applyDefaults(&cfg)

	if cfg.Bot.Agent != "aider" {
		t.Errorf("Bot.Agent = %q, want aider (not overridden)", cfg.Bot.Agent)
	}
	if cfg.Bot.MaxRetries != 5 {
		t.Errorf("Bot.MaxRetries = %d, want 5 (not overridden)", cfg.Bot.MaxRetries)
	}
}

func containsString(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestNormalizeRoutingKeys(t *testing.T) {
	cfg := &Config{Routing: routing.PhaseRouting{Overrides: map[string]routing.ModelConfig{
		"TRIAGE":   {Adapter: "codex", Model: "gpt-5"},
		"Grooming": {Adapter: "claude-code", Model: "opus"},
	}}}
	normalizeRoutingKeys(cfg)

	if _, ok := cfg.Routing.Overrides["triage"]; !ok {
		t.Errorf("expected triage key, got %v", cfg.Routing.Overrides)
	}
	if _, ok := cfg.Routing.Overrides["grooming"]; !ok {
		t.Errorf("expected grooming key, got %v", cfg.Routing.Overrides)
	}
}

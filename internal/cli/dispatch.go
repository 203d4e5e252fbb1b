package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nopo-automation/issuebot/internal/agentbridge"
	"github.com/nopo-automation/issuebot/internal/cloud/gcp"
	"github.com/nopo-automation/issuebot/internal/config"
	"github.com/nopo-automation/issuebot/internal/ghclient"
	"github.com/nopo-automation/issuebot/internal/memory"
	"github.com/nopo-automation/issuebot/internal/observability"
	"github.com/nopo-automation/issuebot/internal/orchestrator"
	"github.com/nopo-automation/issuebot/internal/router"
	"github.com/nopo-automation/issuebot/internal/routing"
	"github.com/nopo-automation/issuebot/internal/security"
)

// logSanitizer redacts secret-shaped substrings from error text before
// it reaches the dispatch logger, in case a wrapped error echoes a
// credential from an HTTP client or subprocess failure.
var logSanitizer = security.NewLogSanitizer()

// pathSanitizer strips home-directory and session-scoped path segments
// from the checkout directory before it's logged.
var pathSanitizer = security.NewPathSanitizer()

var dispatchEventPath string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one repository event through the orchestrator pipeline",
	Long: `dispatch reads a single router.RawEvent from a JSON file (or stdin
when --event is omitted), routes it, loads issue context, runs the state
machine, executes the resulting actions against GitHub and the configured
agent, and prints the outcome as JSON.`,
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchEventPath, "event", "", "path to a RawEvent JSON file (default: stdin)")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	ev, err := readRawEvent(dispatchEventPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("dispatch: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("dispatch: invalid config: %w", err)
	}

	result, err := dispatchOne(cmd.Context(), cfg, ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// dispatchOne wires a live ghclient.Client and agentbridge.Bridge and
// runs orchestrator.Dispatch once, shared by the dispatch command and
// the fixtures harness's live (non-mocked) path.
func dispatchOne(ctx context.Context, cfg *config.Config, ev router.RawEvent) (orchestrator.Result, error) {
	workDir := workDirForAgent()
	logger := gcp.NewLogger(ctx, fmt.Sprintf("dispatch-%s-%d", ev.EventName, ev.ResourceNumber))
	defer func() { _ = logger.Close() }()
	logger.LogInfo(fmt.Sprintf("dispatching %s/%s for %s #%d", cfg.GitHub.Owner, cfg.GitHub.Repo, ev.Kind, ev.ResourceNumber))
	logger.LogInfo(fmt.Sprintf("checkout dir: %s", pathSanitizer.Sanitize(workDir)))

	keyPEM, err := readPrivateKey(cfg.GitHub.PrivateKeySecret)
	if err != nil {
		logger.LogError(logSanitizer.SanitizeError(err))
		return orchestrator.Result{}, fmt.Errorf("dispatch: read private key: %w", err)
	}

	vcs, err := ghclient.New(ghclient.Config{
		AppID:          cfg.GitHub.AppID,
		InstallationID: cfg.GitHub.InstallationID,
		PrivateKeyPEM:  keyPEM,
		Owner:          cfg.GitHub.Owner,
		Repo:           cfg.GitHub.Repo,
		ProjectNumber:  cfg.Project.Number,
		BotUsername:    cfg.Bot.Username,
	})
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("dispatch: build github client: %w", err)
	}

	bridge, err := agentbridge.New(cfg.Bot.Agent, cfg.Bot.AgentBinary, githubTokenForAgent(cfg), workDir, routing.NewRouter(&cfg.Routing))
	if err != nil {
		logger.LogError(logSanitizer.SanitizeError(err))
		return orchestrator.Result{}, fmt.Errorf("dispatch: build agent bridge: %w", err)
	}

	result, err := orchestrator.Dispatch(ctx, orchestrator.Params{
		Owner:            cfg.GitHub.Owner,
		Repo:             cfg.GitHub.Repo,
		Event:            ev,
		BotUsername:      cfg.Bot.Username,
		ReviewerUsername: cfg.Bot.ReviewerUsername,
		MaxRetries:       cfg.Bot.MaxRetries,
		VCS:              vcs,
		Agent:            bridge,
		DryRun:           cfg.Bot.DryRun,
		WorkDir:          memoryWorkDir(cfg, workDir),
		MemoryConfig:     memoryConfigFrom(cfg),
		Tracer:           tracerFrom(cfg),
	})
	if err != nil {
		logger.LogError(logSanitizer.SanitizeError(err))
		return result, err
	}
	logger.LogInfo(fmt.Sprintf("dispatch #%d reached state %s (retrigger=%v)", ev.ResourceNumber, result.State, result.Retrigger))
	return result, nil
}

// memoryWorkDir gates cross-iteration memory on the explicit
// memory.enabled opt-in, leaving it off by default.
func memoryWorkDir(cfg *config.Config, workDir string) string {
	if !cfg.Memory.Enabled {
		return ""
	}
	return workDir
}

func memoryConfigFrom(cfg *config.Config) memory.Config {
	return memory.Config{
		MaxEntries:    cfg.Memory.MaxEntries,
		ContextBudget: cfg.Memory.ContextBudget,
	}
}

// tracerFrom builds a Langfuse tracer when credentials are configured,
// else leaves tracing a no-op inside the runner.
func tracerFrom(cfg *config.Config) observability.Tracer {
	if cfg.Langfuse.PublicKey == "" || cfg.Langfuse.SecretKey == "" {
		return nil
	}
	return observability.NewLangfuseTracer(observability.LangfuseConfig{
		PublicKey: cfg.Langfuse.PublicKey,
		SecretKey: cfg.Langfuse.SecretKey,
		BaseURL:   cfg.Langfuse.BaseURL,
	}, log.New(os.Stderr, "langfuse: ", log.LstdFlags))
}

func readRawEvent(path string) (router.RawEvent, error) {
	var r *os.File
	if path == "" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return router.RawEvent{}, fmt.Errorf("dispatch: open event file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var ev router.RawEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return router.RawEvent{}, fmt.Errorf("dispatch: decode event: %w", err)
	}
	return ev, nil
}

func readPrivateKey(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func githubTokenForAgent(cfg *config.Config) string {
	return viper.GetString("github_token")
}

func workDirForAgent() string {
	if wd := viper.GetString("work_dir"); wd != "" {
		return wd
	}
	wd, _ := os.Getwd()
	return wd
}

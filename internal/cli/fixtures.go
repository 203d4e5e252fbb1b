package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nopo-automation/issuebot/internal/actions"
	"github.com/nopo-automation/issuebot/internal/issuedata"
	"github.com/nopo-automation/issuebot/internal/machine"
	"github.com/nopo-automation/issuebot/internal/markdown"
	"github.com/nopo-automation/issuebot/internal/orchestrator"
	"github.com/nopo-automation/issuebot/internal/router"
	"github.com/nopo-automation/issuebot/internal/runner"
)

var fixturesDir string

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Run JSON fixtures through the orchestrator against an in-memory VCS",
}

var fixturesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every *.json fixture in --dir and report pass/fail",
	RunE:  runFixtures,
}

func init() {
	fixturesRunCmd.Flags().StringVar(&fixturesDir, "dir", "testdata/fixtures", "directory of fixture JSON files")
	fixturesCmd.AddCommand(fixturesRunCmd)
	rootCmd.AddCommand(fixturesCmd)
}

// fixture is one self-contained dispatch scenario: the raw event, the
// issue snapshot an in-memory VCS will serve, canned agent outputs, and
// the outcome to check the real Dispatch against.
type fixture struct {
	Owner            string                            `json:"owner"`
	Repo             string                             `json:"repo"`
	Event            router.RawEvent                    `json:"event"`
	IssueNumber      int                                `json:"issueNumber"`
	Title            string                             `json:"title"`
	RawBody          string                             `json:"rawBody"`
	State            issuedata.IssueState               `json:"state"`
	Labels           []string                           `json:"labels"`
	Assignees        []string                           `json:"assignees"`
	MockOutputs      map[actions.RunClaudeKind]string    `json:"mockOutputs"`
	BotUsername      string                             `json:"botUsername"`
	ReviewerUsername string                             `json:"reviewerUsername"`
	MaxRetries       int                                `json:"maxRetries"`

	Expect struct {
		Skip   bool          `json:"skip"`
		State  machine.State `json:"state"`
		Labels []string      `json:"labels"`
	} `json:"expect"`
}

func runFixtures(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(fixturesDir)
	if err != nil {
		return fmt.Errorf("fixtures: read %s: %w", fixturesDir, err)
	}

	total, failed := 0, 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		total++
		name := e.Name()
		if err := runOneFixture(cmd.Context(), filepath.Join(fixturesDir, name)); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "ok   %s\n", name)
	}

	fmt.Fprintf(os.Stdout, "%d/%d fixtures passed\n", total-failed, total)
	if failed > 0 {
		return fmt.Errorf("fixtures: %d of %d failed", failed, total)
	}
	return nil
}

func runOneFixture(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	body, err := markdown.Parse(fx.RawBody)
	if err != nil {
		return fmt.Errorf("parse rawBody: %w", err)
	}

	vcs := newFixtureVCS(issuedata.IssueData{
		Owner: fx.Owner,
		Repo:  fx.Repo,
		Number: fx.IssueNumber,
		Issue: issuedata.Issue{
			Number:    fx.IssueNumber,
			Title:     fx.Title,
			BodyAST:   body,
			RawBody:   fx.RawBody,
			State:     fx.State,
			Labels:    fx.Labels,
			Assignees: fx.Assignees,
		},
	})

	res, err := orchestrator.Dispatch(ctx, orchestrator.Params{
		Owner:            fx.Owner,
		Repo:             fx.Repo,
		Event:            fx.Event,
		BotUsername:      fx.BotUsername,
		ReviewerUsername: fx.ReviewerUsername,
		MaxRetries:       fx.MaxRetries,
		VCS:              vcs,
		Agent:            runner.MockInvoker{Outputs: fx.MockOutputs},
	})
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if res.Skipped != fx.Expect.Skip {
		return fmt.Errorf("skip = %v, want %v (reason: %s)", res.Skipped, fx.Expect.Skip, res.SkipReason)
	}
	if fx.Expect.Skip {
		return nil
	}
	if fx.Expect.State != "" && res.State != fx.Expect.State {
		return fmt.Errorf("state = %q, want %q", res.State, fx.Expect.State)
	}
	for _, want := range fx.Expect.Labels {
		if !hasLabel(vcs.persisted(), want) {
			return fmt.Errorf("expected persisted label %q, got %v", want, vcs.persisted().Issue.Labels)
		}
	}
	return nil
}

func hasLabel(data *issuedata.IssueData, label string) bool {
	if data == nil {
		return false
	}
	for _, l := range data.Issue.Labels {
		if l == label {
			return true
		}
	}
	return false
}

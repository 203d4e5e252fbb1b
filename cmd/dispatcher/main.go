// Command dispatcher is issuebot's entry point: it registers the
// available agent adapters and hands off to the Cobra command tree.
package main

import (
	"fmt"
	"os"

	_ "github.com/nopo-automation/issuebot/internal/agent/aider"
	_ "github.com/nopo-automation/issuebot/internal/agent/claudecode"
	_ "github.com/nopo-automation/issuebot/internal/agent/codex"
	"github.com/nopo-automation/issuebot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

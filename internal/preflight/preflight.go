package preflight

import (
	"context"

	"clapper/internal/config"
	"clapper/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed reports whether any check in results did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}

// RunAll executes all applicable preflight checks for the given config.
// Provider checks only run when the configured cast needs the provider, so
// a setup without ElevenLabs-voiced actors never blocks on that API key.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Projects directory (always checked)
	results = append(results, CheckDirectoryAccess("Projects directory", cfg.Paths.ProjectsDir))

	// Log directory (when configured)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range CheckRenderTools(cfg) {
		results = append(results, toolResult(status))
	}

	if cfg.RequiresElevenLabs() {
		results = append(results, CheckElevenLabs(ctx, cfg))
	}
	if cfg.RequiresHeyGen() {
		results = append(results, CheckHeyGen(ctx, cfg))
	}

	return results
}

func toolResult(status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Command}
}

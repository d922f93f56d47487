package preflight

import (
	"context"

	"habari/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Required bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckStreamKey(cfg),
		required(CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir)),
		required(CheckDirectoryAccess("State directory", cfg.Paths.StateDir)),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Detail:   depDetail(status.Command, status.Detail),
			Required: !status.Optional,
		})
	}
	if usesOpenAI(cfg) {
		results = append(results, CheckOpenAI(ctx, cfg))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Required && !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func required(r Result) Result {
	r.Required = true
	return r
}

func depDetail(command, detail string) string {
	if detail != "" {
		return detail
	}
	return command
}

func usesOpenAI(cfg *config.Config) bool {
	return cfg.Translate.Provider == "openai" || cfg.UsesEngine(config.EngineOpenAI)
}

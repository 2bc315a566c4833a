package preflight

import (
	"context"

	"scenecast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks every job needs. Network probes are left to
// the status command.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCredential("LLM API key", cfg.LLM.APIKey, "set llm.api_key or OPENROUTER_API_KEY"),
	}
	if cfg.UsesStockFootage() {
		results = append(results, CheckCredential("Pexels API key", cfg.Pexels.APIKey, "set pexels.api_key or PEXELS_KEY"))
	}
	if cfg.ImageGen.Backend == config.ImageBackendOpenAI {
		results = append(results, CheckCredential("Image API key", cfg.ImageGen.APIKey, "set imagegen.api_key or OPENAI_API_KEY"))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

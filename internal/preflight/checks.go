package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"scenecast/internal/config"
	"scenecast/internal/deps"
	"scenecast/internal/services/llm"
)

const (
	llmCheckTimeout     = 30 * time.Second
	sdwebuiCheckTimeout = 5 * time.Second
)

func pass(name, detail string) Result { return Result{Name: name, Passed: true, Detail: detail} }

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Detail: fmt.Sprintf(format, args...)}
}

// CheckLLM makes one authenticated call to the chat endpoint.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return fail(name, "API key missing")
	}
	ctx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithAttempts(1))
	err := client.HealthCheck(ctx)
	var netErr net.Error
	switch {
	case err == nil:
		return pass(name, "API reachable")
	case errors.Is(err, context.DeadlineExceeded):
		return fail(name, "health check timed out (LLM API unresponsive)")
	case errors.As(err, &netErr) && netErr.Timeout():
		return fail(name, "health check timed out (LLM API unreachable)")
	default:
		return fail(name, "%v", err)
	}
}

// CheckCredential reports whether a secret is set without echoing it.
func CheckCredential(name, value, hint string) Result {
	if strings.TrimSpace(value) == "" {
		return fail(name, "missing (%s)", hint)
	}
	return pass(name, "configured")
}

// CheckSDWebUI expects 200 from the WebUI options endpoint.
func CheckSDWebUI(ctx context.Context, baseURL string) Result {
	const name = "SD WebUI"
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return fail(name, "missing url")
	}
	ctx, cancel := context.WithTimeout(ctx, sdwebuiCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/sdapi/v1/options", nil)
	if err != nil {
		return fail(name, "request failed (%v)", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fail(name, "unreachable (%v)", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(name, "unexpected status (%d)", resp.StatusCode)
	}
	return pass(name, "Reachable")
}

// CheckDirectoryAccess requires path to be a directory the process can
// list, enter and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail(name, "%s (error: does not exist)", path)
	case err != nil:
		return fail(name, "%s (error: stat: %v)", path, err)
	case !info.IsDir():
		return fail(name, "%s (error: is not a directory)", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(name, "%s (error: insufficient permissions: %v)", path, err)
	}
	return pass(name, path+" (read/write ok)")
}

// CheckSystemDeps evaluates the binaries the pipeline shells out to, plus
// the libass filter when captions are burned in. The daemon and the CLI
// status command both report it.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	results := deps.CheckBinaries(deps.Requirements(cfg))
	if cfg.Render.BurnCaptions {
		results = append(results, deps.CheckSubtitlesFilter(ctx, cfg.FFmpegBinary(), nil))
	}
	return results
}

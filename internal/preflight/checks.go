package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"clapper/internal/config"
	"clapper/internal/deps"
	"clapper/internal/services/elevenlabs"
	"clapper/internal/services/heygen"
)

const providerCheckTimeout = 10 * time.Second

// CheckElevenLabs verifies that the speech API is reachable and the key is
// valid. One attempt, no retries; a render run retries nothing either.
func CheckElevenLabs(ctx context.Context, cfg *config.Config) Result {
	const name = "ElevenLabs"

	if cfg.ElevenLabs.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	client, err := elevenlabs.New(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL,
		elevenlabs.WithTimeout(providerCheckTimeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(name, err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckHeyGen verifies that the avatar API is reachable and the key is valid.
func CheckHeyGen(ctx context.Context, cfg *config.Config) Result {
	const name = "HeyGen"

	if cfg.HeyGen.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	client, err := heygen.New(cfg.HeyGen.APIKey, cfg.HeyGen.APIBaseURL, cfg.HeyGen.UploadBaseURL,
		heygen.WithTimeout(providerCheckTimeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(name, err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRenderTools evaluates the external binaries the render pipeline shells
// out to. Both the render preflight and the CLI status command use this to
// avoid duplicating the requirements list.
func CheckRenderTools(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Render(
		deps.ResolveFFmpegPath(cfg.FFmpegBinary()),
		deps.ResolveFFprobePath(cfg.FFprobeBinary()),
	))
}

// summarizeProviderError produces a human-readable summary for provider
// health check failures.
func summarizeProviderError(name string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", name)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", name)
	}
	return err.Error()
}

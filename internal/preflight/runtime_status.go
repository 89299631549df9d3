package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"clapper/internal/config"
)

// CheckNtfy verifies the notification endpoint responds. The topic URL is
// probed with HEAD so no notification is actually published.
func CheckNtfy(ctx context.Context, endpoint string) Result {
	const name = "Notifications"

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing topic"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
	return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%d)", resp.StatusCode)}
}

// CheckNtfyFromConfig evaluates notification status from config and connectivity.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckNtfy(context.Background(), cfg.Notifications.NtfyTopic)
}

// CheckLedgerFromConfig evaluates whether render history can be recorded.
// The database itself is created on first use, so only the configured path
// is inspected here.
func CheckLedgerFromConfig(cfg *config.Config) Result {
	const name = "Render history"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Ledger.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	path := strings.TrimSpace(cfg.Ledger.Path)
	if path == "" {
		return Result{Name: name, Detail: "Missing path"}
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		return Result{Name: name, Passed: true, Detail: path}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first render)", path)}
}

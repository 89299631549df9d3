package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg binary the compositor will execute.
// A bare name is resolved from PATH so status output shows the same binary
// ffmpeg would run; an explicit path passes through unchanged so exec errors
// name the configured location.
func ResolveFFmpegPath(configured string) string {
	return resolveBinary(configured, "ffmpeg")
}

// ResolveFFprobePath returns the ffprobe binary used for media validation.
func ResolveFFprobePath(configured string) string {
	return resolveBinary(configured, "ffprobe")
}

func resolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

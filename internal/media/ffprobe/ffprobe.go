package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandContext allows tests to stub ffprobe execution.
var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// HasVideo reports whether the container carries at least one video stream.
func (r Result) HasVideo() bool {
	return r.streamCount("video") > 0
}

// HasAudio reports whether the container carries at least one audio stream.
func (r Result) HasAudio() bool {
	return r.streamCount("audio") > 0
}

// Dimensions returns the width and height of the first video stream, or false
// when no video stream reports them.
func (r Result) Dimensions() (int, int, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, true
		}
	}
	return 0, 0, false
}

// DurationSeconds returns the container duration in seconds, falling back to
// the longest stream duration when the container does not report one.
func (r Result) DurationSeconds() float64 {
	if d, ok := parseSeconds(r.Format.Duration); ok {
		return d
	}
	longest := 0.0
	for _, stream := range r.Streams {
		if d, ok := parseSeconds(stream.Duration); ok && d > longest {
			longest = d
		}
	}
	return longest
}

func (r Result) streamCount(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// VerifyVideo probes a rendered or downloaded video and rejects containers
// without a video stream, without audio, or with a non-positive duration.
// Provider downloads occasionally land as error pages or truncated files, and
// those must never be published into the cache.
func VerifyVideo(ctx context.Context, binary, path string) (Result, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Result{}, err
	}
	if !result.HasVideo() {
		return result, fmt.Errorf("ffprobe verify: %s has no video stream", path)
	}
	if !result.HasAudio() {
		return result, fmt.Errorf("ffprobe verify: %s has no audio stream", path)
	}
	if result.DurationSeconds() <= 0 {
		return result, fmt.Errorf("ffprobe verify: %s reports no duration", path)
	}
	return result, nil
}

// VerifyAudio probes a synthesized audio artifact and rejects containers
// without an audio stream or with a non-positive duration.
func VerifyAudio(ctx context.Context, binary, path string) (Result, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Result{}, err
	}
	if !result.HasAudio() {
		return result, fmt.Errorf("ffprobe verify: %s has no audio stream", path)
	}
	if result.DurationSeconds() <= 0 {
		return result, fmt.Errorf("ffprobe verify: %s reports no duration", path)
	}
	return result, nil
}

func parseSeconds(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0, false
	}
	return parsed, true
}

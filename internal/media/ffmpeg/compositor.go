package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"log/slog"

	"clapper/internal/logging"
	"clapper/internal/services"
)

// Fit policies for normalizing paragraph clips to the target canvas.
const (
	FitPad     = "pad"
	FitStretch = "stretch"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
	frameRate     = "30"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Options configures the compositor target canvas and binary.
type Options struct {
	Binary    string // ffmpeg binary name or path; defaults to "ffmpeg"
	Width     int    // target canvas width; defaults to 1280
	Height    int    // target canvas height; defaults to 720
	FitPolicy string // "pad" or "stretch"; defaults to "pad"
}

// SlideSpec describes a slide-mode scene: a solid background, a centered
// title, and the scene audio that bounds the duration.
type SlideSpec struct {
	Background string // ffmpeg color name or 0xRRGGBB
	Title      string
	AudioPath  string
}

// Compositor builds scene and movie artifacts by invoking ffmpeg.
type Compositor struct {
	binary string
	width  int
	height int
	fit    string
	logger *slog.Logger
	run    commandRunner
}

// NewCompositor constructs a compositor. Zero-value options fall back to the
// 1280x720 pad defaults.
func NewCompositor(opts Options, logger *slog.Logger) *Compositor {
	c := &Compositor{
		binary: strings.TrimSpace(opts.Binary),
		width:  opts.Width,
		height: opts.Height,
		fit:    strings.TrimSpace(strings.ToLower(opts.FitPolicy)),
		logger: logging.NewComponentLogger(logger, "compositor"),
		run:    defaultCommandRunner,
	}
	if c.binary == "" {
		c.binary = "ffmpeg"
	}
	if c.width <= 0 {
		c.width = defaultWidth
	}
	if c.height <= 0 {
		c.height = defaultHeight
	}
	if c.fit != FitStretch {
		c.fit = FitPad
	}
	return c
}

// SetLogger updates the compositor's logging destination.
func (c *Compositor) SetLogger(logger *slog.Logger) {
	if c == nil {
		return
	}
	c.logger = logging.NewComponentLogger(logger, "compositor")
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Compositor) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Concatenate joins paragraph clips into a single scene video. Every input is
// normalized to the target canvas first so mixed provider resolutions
// concatenate cleanly.
func (c *Compositor) Concatenate(ctx context.Context, inputs []string, outputPath string) error {
	if err := c.checkInputs(inputs, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "concatenate", "", err)
	}

	args := c.buildConcatArgs(inputs, outputPath)
	if c.logger != nil {
		c.logger.Debug("concatenating clips",
			logging.Int("input_count", len(inputs)),
			logging.String("fit_policy", c.fit),
			logging.String("output", outputPath),
		)
	}
	if err := c.execute(ctx, args, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "concatenate", fmt.Sprintf("%d clips", len(inputs)), err)
	}
	return nil
}

// ConcatenateAudio joins paragraph audio artifacts into the complete scene
// audio track.
func (c *Compositor) ConcatenateAudio(ctx context.Context, inputs []string, outputPath string) error {
	if err := c.checkInputs(inputs, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "concatenate-audio", "", err)
	}

	args := c.buildAudioConcatArgs(inputs, outputPath)
	if c.logger != nil {
		c.logger.Debug("concatenating audio",
			logging.Int("input_count", len(inputs)),
			logging.String("output", outputPath),
		)
	}
	if err := c.execute(ctx, args, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "concatenate-audio", fmt.Sprintf("%d tracks", len(inputs)), err)
	}
	return nil
}

// RenderSlide produces a slide-mode scene video: a solid background with the
// title centered, lasting as long as the scene audio.
func (c *Compositor) RenderSlide(ctx context.Context, spec SlideSpec, outputPath string) error {
	if strings.TrimSpace(spec.AudioPath) == "" {
		return services.Wrap(services.ErrComposition, "compose", "slide", "audio path is required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrComposition, "compose", "slide", "output path is required", nil)
	}
	if _, err := os.Stat(spec.AudioPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "slide", "audio not found", err)
	}

	args := c.buildSlideArgs(spec, outputPath)
	if c.logger != nil {
		c.logger.Debug("rendering slide",
			logging.String("title", spec.Title),
			logging.String("output", outputPath),
		)
	}
	if err := c.execute(ctx, args, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "slide", spec.Title, err)
	}
	return nil
}

// OverlayTitle burns the chapter title into the leading seconds of a scene
// video. The remainder of the video passes through untouched.
func (c *Compositor) OverlayTitle(ctx context.Context, inputPath, title string, seconds float64, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" {
		return services.Wrap(services.ErrComposition, "compose", "overlay", "input path is required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrComposition, "compose", "overlay", "output path is required", nil)
	}
	if seconds <= 0 {
		return services.Wrap(services.ErrComposition, "compose", "overlay", "overlay duration must be positive", nil)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "overlay", "input not found", err)
	}

	args := c.buildOverlayArgs(inputPath, title, seconds, outputPath)
	if c.logger != nil {
		c.logger.Debug("overlaying title",
			logging.String("title", title),
			logging.String("input", inputPath),
		)
	}
	if err := c.execute(ctx, args, outputPath); err != nil {
		return services.Wrap(services.ErrComposition, "compose", "overlay", title, err)
	}
	return nil
}

func (c *Compositor) checkInputs(inputs []string, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("at least one input is required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("input not found %q: %w", in, err)
		}
	}
	return nil
}

func (c *Compositor) execute(ctx context.Context, args []string, outputPath string) error {
	if err := c.run(ctx, c.binary, args...); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("%s failed: %w", c.binary, err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("%s did not produce output file: %w", c.binary, err)
	}
	return nil
}

// buildConcatArgs normalizes each input to the canvas and joins them with the
// concat filter, re-encoding video and audio once.
func (c *Compositor) buildConcatArgs(inputs []string, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var filter strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filter, "[%d:v]%s[v%d];", i, c.videoNormalizeFilter(), i)
		fmt.Fprintf(&filter, "[%d:a]%s[a%d];", i, audioNormalizeFilter, i)
	}
	for i := range inputs {
		fmt.Fprintf(&filter, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[outv][outa]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outv]",
		"-map", "[outa]",
		"-r", frameRate,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	)
	return args
}

func (c *Compositor) buildAudioConcatArgs(inputs []string, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var filter strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[outa]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outa]",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	)
	return args
}

func (c *Compositor) buildSlideArgs(spec SlideSpec, outputPath string) []string {
	background := strings.TrimSpace(spec.Background)
	if background == "" {
		background = "white"
	}
	source := fmt.Sprintf("color=c=%s:s=%dx%d:r=%s", background, c.width, c.height, frameRate)
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=black:fontsize=48:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawText(spec.Title),
	)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", source,
		"-i", spec.AudioPath,
		"-vf", drawtext,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	}
}

func (c *Compositor) buildOverlayArgs(inputPath, title string, seconds float64, outputPath string) []string {
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=70:box=1:boxcolor=black:boxborderw=24:x=(w-text_w)/2:y=(h-text_h)/2:enable='between(t,0,%s)'",
		escapeDrawText(title),
		strconv.FormatFloat(seconds, 'f', -1, 64),
	)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vf", drawtext,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		outputPath,
	}
}

// videoNormalizeFilter scales a clip to the canvas. Pad preserves the source
// aspect ratio and letterboxes; stretch fills the canvas exactly.
func (c *Compositor) videoNormalizeFilter() string {
	if c.fit == FitStretch {
		return fmt.Sprintf("scale=%d:%d,setsar=1", c.width, c.height)
	}
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		c.width, c.height, c.width, c.height,
	)
}

const audioNormalizeFilter = "aformat=sample_rates=44100:channel_layouts=stereo"

// escapeDrawText prepares free text for drawtext inside a single-quoted
// filtergraph value. Backslash and percent are drawtext-level escapes; a
// literal quote has to close and reopen the quoted section.
func escapeDrawText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `'`, `'\''`)
	return s
}

// defaultCommandRunner executes ffmpeg commands.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Include output in error for debugging
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

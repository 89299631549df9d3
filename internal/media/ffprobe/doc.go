// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The renderer probes every provider download and every composed artifact
// before publishing it into the cache; VerifyVideo and VerifyAudio implement
// those gates on top of Inspect.
package ffprobe

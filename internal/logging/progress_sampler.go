package logging

import "strings"

// ProgressSampler thins repetitive progress reports. Poll loops and ffmpeg
// runs emit far more updates than a reader wants; the sampler passes one line
// per stage transition plus one per bucket of percent advance.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percentage points. Non-positive widths fall back to 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether this update adds signal. A negative percent means
// the caller cannot estimate completion; the message is ignored because it
// tends to carry volatile detail such as attempt counters.
func (s *ProgressSampler) ShouldLog(percent float64, stage, message string) bool {
	if s == nil {
		return true
	}
	emit := false
	if name := strings.TrimSpace(stage); name != "" && name != s.stage {
		s.stage = name
		s.bucket = -1
		emit = true
	}
	if percent < 0 {
		return emit
	}
	if bucket := int(min(percent, 100) / s.step); bucket > s.bucket {
		s.bucket = bucket
		emit = true
	}
	return emit
}

// Reset clears sampler state so the next update always logs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.bucket = -1
}

package ledger

import "time"

// SessionStatus represents the lifecycle of a render session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session records one invocation of the render pipeline against a project.
type Session struct {
	ID                string
	Project           string
	ScriptDigest      string
	Mode              string
	Status            SessionStatus
	ScenesTotal       int
	ScenesRendered    int
	ScenesCached      int
	ScenesFailed      int
	ParagraphsDropped int
	ErrorMessage      string
	StartedAt         time.Time
	FinishedAt        *time.Time
}

// SessionTotals carries the final counters written when a session finishes.
type SessionTotals struct {
	ScenesRendered    int
	ScenesCached      int
	ScenesFailed      int
	ParagraphsDropped int
}

// Job providers.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderHeyGen     = "heygen"
)

// Job kinds.
const (
	KindSpeech      = "speech"
	KindAssetUpload = "asset-upload"
	KindAvatarVideo = "avatar-video"
)

// Job statuses.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobTimeout   = "timeout"
)

// Job records one provider interaction: a speech synthesis, an asset upload,
// or an avatar video generation including its polling outcome.
type Job struct {
	ID              int64
	SessionID       string
	Provider        string
	Kind            string
	SceneDigest     string
	ParagraphDigest string
	Actor           string
	Reference       string
	Status          string
	Attempts        int
	Duration        time.Duration
	ErrorMessage    string
	CreatedAt       time.Time
}

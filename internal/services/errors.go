package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProviderRequest    = errors.New("provider request failed")
	ErrProviderJobFailed  = errors.New("provider job failed")
	ErrProviderJobTimeout = errors.New("provider job timed out")
	ErrUnknownActor       = errors.New("unknown actor")
	ErrComposition        = errors.New("composition failed")
	ErrSceneEmpty         = errors.New("scene has no renderable paragraphs")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrTransient          = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later disposition classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition classifies how the renderer reacts to a stage error.
type Disposition int

const (
	// DispositionAbort stops the run; the failure is environmental and
	// would repeat for every scene.
	DispositionAbort Disposition = iota
	// DispositionFailScene abandons the current scene and moves to the next.
	DispositionFailScene
	// DispositionSkipParagraph drops the offending paragraph and keeps
	// rendering the scene with the survivors.
	DispositionSkipParagraph
)

func (d Disposition) String() string {
	switch d {
	case DispositionAbort:
		return "abort"
	case DispositionFailScene:
		return "fail-scene"
	case DispositionSkipParagraph:
		return "skip-paragraph"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// FailureDisposition maps a stage error to the action the renderer should take
// after the stage fails.
func FailureDisposition(err error) Disposition {
	switch {
	case errors.Is(err, ErrUnknownActor),
		errors.Is(err, ErrProviderRequest),
		errors.Is(err, ErrProviderJobFailed),
		errors.Is(err, ErrProviderJobTimeout):
		return DispositionSkipParagraph
	case errors.Is(err, ErrComposition),
		errors.Is(err, ErrSceneEmpty),
		errors.Is(err, ErrTransient):
		return DispositionFailScene
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrExternalTool):
		return DispositionAbort
	default:
		return DispositionFailScene
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package logging

import "strings"

// shortDigestLen bounds scene digests in console subjects.
const shortDigestLen = 8

// FormatSubject renders the scene, paragraph, and stage attrs as a
// console log subject like "Scene 3f2a9c1d/2 (speech)".
func FormatSubject(scene, paragraph, stage string) string {
	scene = strings.TrimSpace(scene)
	paragraph = strings.TrimSpace(paragraph)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if scene != "" {
		subject := "Scene " + ShortDigest(scene)
		if paragraph != "" {
			subject += "/" + paragraph
		}
		parts = append(parts, subject)
	}
	if stage != "" {
		if len(parts) > 0 {
			parts = append(parts, "("+stage+")")
		} else {
			parts = append(parts, stage)
		}
	}
	return strings.Join(parts, " ")
}

// ShortDigest truncates a content digest for display.
func ShortDigest(digest string) string {
	digest = strings.TrimSpace(digest)
	if len(digest) <= shortDigestLen {
		return digest
	}
	return digest[:shortDigestLen]
}

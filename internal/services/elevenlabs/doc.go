// Package elevenlabs synthesizes paragraph speech through the ElevenLabs
// text-to-speech HTTP API. The client returns raw MP3 bytes; callers own
// writing them into the render cache.
package elevenlabs

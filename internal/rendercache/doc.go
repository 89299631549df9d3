// Package rendercache is the content-addressed artifact store under a
// project's cache/ directory.
//
// Four tiers share one layout: every scene owns a scene_<digest> directory
// holding its composed video (scene.mp4), its concatenated narration
// (scene_audio_complete.mp3), and per-paragraph speech and avatar clips
// named <actor>_<paragraph_digest>.mp3/.mp4. Entries are created the first
// time an artifact is produced, never mutated, and never evicted.
//
// Each artifact carries a .manifest.json sidecar recording the tier, key,
// and a producer stamp. An artifact is trusted only when its manifest
// matches what the current configuration would produce, so changing a voice
// or avatar re-renders entries whose input digest did not change. Artifacts
// land via stage-then-rename, and the manifest is written after the rename;
// a crash between the two reads as an untrusted entry, never a corrupt hit.
//
// The scene-audio-complete tier's existence check is derived: the
// concatenated file counts as present only while every constituent
// paragraph's audio is itself present and trusted.
package rendercache

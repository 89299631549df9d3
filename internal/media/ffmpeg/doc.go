// Package ffmpeg composes scene artifacts by shelling out to ffmpeg. It
// concatenates paragraph clips and audio, renders slide scenes, and overlays
// chapter titles. The command runner is injectable so tests assert the exact
// invocations without an ffmpeg install.
package ffmpeg

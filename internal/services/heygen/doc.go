// Package heygen generates avatar video clips through the HeyGen HTTP API.
// Video generation is asynchronous: submit a request, receive a video id,
// poll the status endpoint until the clip is ready, then download it. The
// client exposes each step separately plus a PollFunc adapter for the job
// poller; the renderer owns sequencing them.
package heygen

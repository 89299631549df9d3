// Package project resolves the on-disk layout of a render project: the
// script, the artifact cache, and the final movie, all under one directory.
// A flock-based advisory lock enforces one render per project at a time.
package project

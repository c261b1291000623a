//go:build integration

// Package integration provides end-to-end tests for the tarcat pipeline.
//
// These tests build real archive fixtures on disk, stream them through the
// full pipeline, and re-read the produced tar stream with archive/tar.
// Run with: go test -tags=integration ./integration/...
package integration

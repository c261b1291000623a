package main

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/meigma/tarcat"
	"github.com/meigma/tarcat/backend"
	"github.com/meigma/tarcat/blockio"
)

// slowOpener wraps the default archive opener with a per-open latency and
// a bytes-per-second ceiling on member content, simulating slow media
// such as network mounts.
func slowOpener(latency time.Duration, bytesPerSecond int64) tarcat.Opener {
	return func(path string) (backend.Archive, error) {
		if latency > 0 {
			time.Sleep(latency)
		}
		a, err := backend.Open(path)
		if err != nil {
			return nil, err
		}
		if bytesPerSecond <= 0 {
			return a, nil
		}
		return &slowArchive{
			Archive: a,
			pace: &pacer{
				bytesPerSecond: bytesPerSecond,
				start:          time.Now(),
			},
		}, nil
	}
}

type slowArchive struct {
	backend.Archive
	pace *pacer
}

func (a *slowArchive) Entries() iter.Seq2[backend.Entry, error] {
	return func(yield func(backend.Entry, error) bool) {
		for e, err := range a.Archive.Entries() {
			if err == nil && e.Blocks != nil {
				e.Blocks = a.pace.blocks(e.Blocks)
			}
			if !yield(e, err) {
				return
			}
		}
	}
}

// pacer delays block delivery so cumulative throughput stays at or below
// the configured rate. The rate is shared across every member of the
// archive.
type pacer struct {
	bytesPerSecond int64
	start          time.Time
	readBytes      int64
}

func (p *pacer) blocks(blocks blockio.Seq) blockio.Seq {
	return func(yield func([]byte, error) bool) {
		for b, err := range blocks {
			if n := len(b); n > 0 {
				p.readBytes += int64(n)
				expected := time.Duration(float64(p.readBytes) / float64(p.bytesPerSecond) * float64(time.Second))
				if elapsed := time.Since(p.start); expected > elapsed {
					time.Sleep(expected - elapsed)
				}
			}
			if !yield(b, err) {
				return
			}
		}
	}
}

func parseBytesPerSecond(value string) (int64, error) {
	text := strings.TrimSpace(value)
	text = strings.TrimSuffix(text, "Bps")
	text = strings.TrimSuffix(text, "bps")
	text = strings.TrimSuffix(text, "/s")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}

	lower := strings.ToLower(text)
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(lower, "kb"):
		multiplier = 1024
		text = text[:len(text)-2]
	case strings.HasSuffix(lower, "k"):
		multiplier = 1024
		text = text[:len(text)-1]
	case strings.HasSuffix(lower, "mb"):
		multiplier = 1024 * 1024
		text = text[:len(text)-2]
	case strings.HasSuffix(lower, "m"):
		multiplier = 1024 * 1024
		text = text[:len(text)-1]
	case strings.HasSuffix(lower, "gb"):
		multiplier = 1024 * 1024 * 1024
		text = text[:len(text)-2]
	case strings.HasSuffix(lower, "g"):
		multiplier = 1024 * 1024 * 1024
		text = text[:len(text)-1]
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	raw, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	if raw <= 0 {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	return raw * multiplier, nil
}

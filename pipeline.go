package tarcat

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/meigma/tarcat/backend"
	"github.com/meigma/tarcat/blockio"
)

// Opener opens a source archive by path.
type Opener func(path string) (backend.Archive, error)

// Pipeline streams archive members into a single tar stream.
//
// Archives are processed strictly in the order given, one entry at a
// time. Entry content flows block-by-block from the backend into the
// tar writer through a [blockio.Reader]; nothing is staged in between.
// A Pipeline is reusable; each Run and Count opens the archives afresh.
type Pipeline struct {
	archives []string
	filter   *Filter
	progress ProgressFunc
	open     Opener
	logger   *slog.Logger
}

// Stats reports what Run wrote.
type Stats struct {
	// Entries is the number of members written to the stream.
	Entries int

	// Skipped is the number of members the filter excluded.
	Skipped int

	// Bytes is the content bytes copied, excluding tar framing.
	Bytes uint64
}

// New creates a Pipeline over the given source archives.
func New(archives []string, opts ...Option) *Pipeline {
	p := &Pipeline{
		archives: slices.Clone(archives),
		open:     backend.Open,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pipeline) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// reportProgress sends a progress event if a callback is configured.
func (p *Pipeline) reportProgress(stage ProgressStage, archive, path string, entriesDone int, bytes uint64) {
	if p.progress == nil {
		return
	}
	p.progress(ProgressEvent{
		Stage:       stage,
		Archive:     archive,
		Path:        path,
		EntriesDone: entriesDone,
		Bytes:       bytes,
	})
}

// Run streams every admitted member of each archive, in order, into w
// as one tar stream, then writes the tar trailer.
//
// The first error aborts: the trailer is not written and whatever
// reached w stays there. The context is checked between entries, so
// cancellation takes effect at the next entry boundary.
func (p *Pipeline) Run(ctx context.Context, w io.Writer) (Stats, error) {
	var stats Stats
	if len(p.archives) == 0 {
		return stats, ErrNoArchives
	}

	p.log().Info("streaming archives", "archives", len(p.archives), "selected", p.filter.Len())

	tw := tar.NewWriter(w)
	for _, archivePath := range p.archives {
		if err := p.streamArchive(ctx, tw, archivePath, &stats); err != nil {
			return stats, err
		}
	}
	if err := tw.Close(); err != nil {
		return stats, fmt.Errorf("close tar stream: %w", err)
	}

	p.log().Info("stream complete", "entries", stats.Entries, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

// Count returns the number of entries Run would report progress for.
//
// With a non-empty filter the count is the filter size: every selected
// name is expected to stream. Otherwise each archive is scanned once,
// metadata only; no content is decompressed.
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	if len(p.archives) == 0 {
		return 0, ErrNoArchives
	}
	if n := p.filter.Len(); n > 0 {
		return n, nil
	}

	total := 0
	for _, archivePath := range p.archives {
		n, err := p.countArchive(ctx, archivePath, total)
		if err != nil {
			return 0, err
		}
		total += n
	}

	p.log().Debug("counted entries", "total", total)
	return total, nil
}

// streamArchive copies one archive's admitted members into tw.
// The archive is opened on entry and closed before returning.
func (p *Pipeline) streamArchive(ctx context.Context, tw *tar.Writer, archivePath string, stats *Stats) error {
	a, err := p.open(archivePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer a.Close()

	p.log().Debug("processing archive", "archive", archivePath)

	for e, err := range a.Entries() {
		if err != nil {
			return fmt.Errorf("read %s: %w", archivePath, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.filter.Admits(e.Name) {
			// Rejected entries still count as handled: the progress
			// total may come from a metadata pre-pass over everything.
			stats.Skipped++
			p.reportProgress(StageStreaming, archivePath, e.Name, stats.Entries+stats.Skipped, stats.Bytes)
			continue
		}

		n, err := p.writeEntry(tw, &e)
		if err != nil {
			return fmt.Errorf("%s: entry %s: %w", archivePath, e.Name, err)
		}
		stats.Entries++
		stats.Bytes += n
		p.reportProgress(StageStreaming, archivePath, e.Name, stats.Entries+stats.Skipped, stats.Bytes)
	}
	return nil
}

// writeEntry writes one member's header and content, returning the
// content bytes copied.
func (p *Pipeline) writeEntry(tw *tar.Writer, e *backend.Entry) (uint64, error) {
	if err := tw.WriteHeader(tarHeader(e)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	if e.Blocks == nil {
		return 0, nil
	}

	r := blockio.NewReader(e.Blocks)
	defer r.Close()

	// io.Copy takes the WriteTo path: blocks pass straight through.
	n, err := io.Copy(tw, r)
	if err != nil {
		return uint64(n), fmt.Errorf("copy content: %w", err) //nolint:gosec // n is non-negative
	}
	return uint64(n), nil //nolint:gosec // n is non-negative
}

// countArchive scans one archive's members without reading content.
// base is the count carried in from earlier archives, so progress
// events stay cumulative across the whole pre-pass.
func (p *Pipeline) countArchive(ctx context.Context, archivePath string, base int) (int, error) {
	a, err := p.open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer a.Close()

	n := 0
	for _, err := range a.Entries() {
		if err != nil {
			return 0, fmt.Errorf("scan %s: %w", archivePath, err)
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n++
		p.reportProgress(StageCounting, archivePath, "", base+n, 0)
	}
	return n, nil
}

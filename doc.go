// Package tarcat streams the members of source archives into a single
// tar stream.
//
// A [Pipeline] reads one or more archives (7z, zip, tar, and compressed
// tar variants) strictly in order and writes every admitted member into
// one continuous tar stream. Content flows block-by-block from the
// extraction backend into the tar writer; no member is ever held whole
// in memory, and each content byte is copied at most once on its way
// through.
//
// # Quick Start
//
// Stream two archives to stdout:
//
//	p := tarcat.New([]string{"a.7z", "b.zip"})
//	stats, err := p.Run(ctx, os.Stdout)
//
// Select specific members and report progress:
//
//	p := tarcat.New(archives,
//	    tarcat.WithFilter(tarcat.NewFilter("etc/passwd", "etc/group")),
//	    tarcat.WithProgress(func(ev tarcat.ProgressEvent) {
//	        bar.Add(1)
//	    }),
//	)
//
// # Failure Semantics
//
// The first error aborts the stream: no tar trailer is written and the
// partial output is left as-is for the consumer to detect. Archives are
// opened lazily and closed before the next one starts, so at most one
// source handle is open at a time.
package tarcat

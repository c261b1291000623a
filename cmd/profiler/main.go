package main

import (
	"archive/tar"
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/tarcat"
	"github.com/meigma/tarcat/backend"
	"github.com/meigma/tarcat/blockio"
	"github.com/meigma/tarcat/codec"
)

type config struct {
	mode          string
	format        string
	archives      int
	files         int
	fileSize      int
	dirCount      int
	pattern       string
	out           string
	sourceLatency time.Duration
	sourceBPS     int64
	fgProfile     string
	duration      time.Duration
	iterations    int
	pprofAddr     string
	cpuProfile    string
	memProfile    string
	traceFile     string
	tempDir       string
	keepTemp      bool
	randomSeed    int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkStats tarcat.Stats
	sinkInt   int
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	paths, payload, err := makeArchives(dir, cfg)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
	log.Printf("dataset: %d archive(s), %d payload bytes", len(paths), payload)

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, paths)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

func runProfile(cfg config, paths []string) (profileStats, error) {
	out, err := codec.Parse(cfg.out)
	if err != nil {
		return profileStats{}, err
	}

	var opts []tarcat.Option
	if cfg.sourceLatency > 0 || cfg.sourceBPS > 0 {
		opts = append(opts, tarcat.WithOpener(slowOpener(cfg.sourceLatency, cfg.sourceBPS)))
	}
	p := tarcat.New(paths, opts...)

	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "stream":
		for shouldContinue() {
			cw, err := out.NewWriter(io.Discard)
			if err != nil {
				return profileStats{}, err
			}
			stats, err := p.Run(context.Background(), cw)
			if err != nil {
				return profileStats{}, err
			}
			if err := cw.Close(); err != nil {
				return profileStats{}, err
			}
			sinkStats = stats
			byteCount += int64(stats.Bytes) //nolint:gosec // payload sizes are profiler-controlled
			ops++
		}

	case "count":
		for shouldContinue() {
			n, err := p.Count(context.Background())
			if err != nil {
				return profileStats{}, err
			}
			sinkInt = n
			ops++
		}

	case "read":
		// Drains member blocks without tar framing, isolating the
		// backends and the block adapter from the writer.
		for shouldContinue() {
			n, err := drainArchives(paths)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += n
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func drainArchives(paths []string) (int64, error) {
	var total int64
	for _, path := range paths {
		a, err := backend.Open(path)
		if err != nil {
			return total, err
		}
		for e, entryErr := range a.Entries() {
			if entryErr != nil {
				_ = a.Close()
				return total, entryErr
			}
			if e.Blocks == nil {
				continue
			}
			r := blockio.NewReader(e.Blocks)
			n, copyErr := io.Copy(io.Discard, r)
			_ = r.Close()
			if copyErr != nil {
				_ = a.Close()
				return total, copyErr
			}
			total += n
		}
		if err := a.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func parseFlags() config {
	var cfg config
	var sourceBPS string
	flag.StringVar(&cfg.mode, "mode", "stream", "mode: stream, count, read")
	flag.StringVar(&cfg.format, "format", "tar", "source archive format: tar, tgz, zip")
	flag.IntVar(&cfg.archives, "archives", 1, "number of source archives")
	flag.IntVar(&cfg.files, "files", 512, "number of members per archive")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "member size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.out, "out", "", "output compression: gz, bz2, xz, zst, lz4 (empty = none)")
	flag.DurationVar(&cfg.sourceLatency, "source-latency", 0, "per-archive open latency for the slow source")
	flag.StringVar(&sourceBPS, "source-bps", "", "bytes/sec throttle for the slow source (e.g. 10MBps)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	if sourceBPS != "" {
		bps, err := parseBytesPerSecond(sourceBPS)
		if err != nil {
			log.Fatalf("source-bps: %v", err)
		}
		cfg.sourceBPS = bps
	}
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "tarcat-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeArchives(dir string, cfg config) ([]string, int64, error) {
	count := cfg.archives
	if count <= 0 {
		count = 1
	}
	ext, ok := formatExt(cfg.format)
	if !ok {
		return nil, 0, fmt.Errorf("unknown format: %s", cfg.format)
	}

	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks
	paths := make([]string, 0, count)
	var payload int64
	for i := range count {
		path := filepath.Join(dir, fmt.Sprintf("src%02d.%s", i, ext))
		n, err := writeArchive(path, cfg, rng)
		if err != nil {
			return nil, 0, err
		}
		paths = append(paths, path)
		payload += n
	}
	return paths, payload, nil
}

func formatExt(format string) (string, bool) {
	switch format {
	case "tar":
		return "tar", true
	case "tgz":
		return "tgz", true
	case "zip":
		return "zip", true
	}
	return "", false
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func writeArchive(path string, cfg config, rng *rand.Rand) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	var payload int64
	switch cfg.format {
	case "zip":
		payload, err = writeZipMembers(f, cfg, rng)
	case "tgz":
		payload, err = writeTarMembers(f, codec.Gzip, cfg, rng)
	default:
		payload, err = writeTarMembers(f, codec.None, cfg, rng)
	}
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	return payload, f.Close()
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func writeTarMembers(w io.Writer, c codec.Codec, cfg config, rng *rand.Rand) (int64, error) {
	cw, err := c.NewWriter(w)
	if err != nil {
		return 0, err
	}
	tw := tar.NewWriter(cw)

	var payload int64
	for i := range cfg.files {
		content := memberContent(i, cfg.fileSize, cfg.pattern, rng)
		hdr := &tar.Header{
			Name:    memberName(i, cfg.dirCount),
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: time.Unix(1700000000, 0),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return payload, err
		}
		if _, err := tw.Write(content); err != nil {
			return payload, err
		}
		payload += int64(len(content))
	}
	if err := tw.Close(); err != nil {
		return payload, err
	}
	return payload, cw.Close()
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func writeZipMembers(w io.Writer, cfg config, rng *rand.Rand) (int64, error) {
	zw := zip.NewWriter(w)

	var payload int64
	for i := range cfg.files {
		content := memberContent(i, cfg.fileSize, cfg.pattern, rng)
		hdr := &zip.FileHeader{
			Name:     memberName(i, cfg.dirCount),
			Method:   zip.Deflate,
			Modified: time.Unix(1700000000, 0),
		}
		hdr.SetMode(0o644)
		mw, err := zw.CreateHeader(hdr)
		if err != nil {
			return payload, err
		}
		if _, err := mw.Write(content); err != nil {
			return payload, err
		}
		payload += int64(len(content))
	}
	return payload, zw.Close()
}

func memberName(i, dirCount int) string {
	if dirCount <= 0 {
		dirCount = 1
	}
	return fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
}

func memberContent(i, size int, pattern string, rng *rand.Rand) []byte {
	content := make([]byte, size)
	if pattern == "random" {
		_, _ = rng.Read(content)
		return content
	}
	fillByte := byte('a' + (i % 26))
	for j := range content {
		content[j] = fillByte
	}
	if len(content) > 0 {
		content[0] = byte(i)
	}
	return content
}

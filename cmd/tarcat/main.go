// tarcat streams the members of 7z, zip, and tar archives into a single
// tar stream on stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/meigma/tarcat"
	"github.com/meigma/tarcat/codec"
	"github.com/meigma/tarcat/internal/countio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("tarcat", pflag.ContinueOnError)
	showProgress := flagSet.BoolP("show-progress", "p", false, "count entries up front and report progress on stderr")
	filesFrom := flagSet.StringP("files-from", "T", "", "stream only the members named in FILE, one per line ('-' for stdin)")
	compress := flagSet.StringP("compressed", "Z", "", fmt.Sprintf("compress the output stream (%s)", strings.Join(codec.Names(), ", ")))
	printDigest := flagSet.Bool("digest", false, "print the SHA-256 digest of the written stream to stderr")
	verbose := flagSet.BoolP("verbose", "v", false, "enable debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	archives := flagSet.Args()
	if len(archives) == 0 {
		return errors.New("at least one source archive is required")
	}

	out, err := codec.Parse(*compress)
	if err != nil {
		return err
	}

	logger := newLogger(*verbose)
	opts := []tarcat.Option{tarcat.WithLogger(logger)}

	if *filesFrom != "" {
		filter, err := loadFilter(*filesFrom)
		if err != nil {
			return err
		}
		opts = append(opts, tarcat.WithFilter(filter))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar
	if *showProgress {
		total, err := tarcat.New(archives, opts...).Count(ctx)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		var progress tarcat.ProgressFunc
		progress, bar = newProgress(total, logger)
		opts = append(opts, tarcat.WithProgress(progress))
	}

	counted := &countio.Writer{W: os.Stdout}
	var sink io.Writer = counted
	var digester digest.Digester
	if *printDigest {
		digester = digest.Canonical.Digester()
		sink = io.MultiWriter(counted, digester.Hash())
	}
	compressor, err := out.NewWriter(sink)
	if err != nil {
		return err
	}

	stats, err := tarcat.New(archives, opts...).Run(ctx, compressor)
	if err != nil {
		// The compressor stays unflushed: a partial stream must not
		// gain a valid trailer.
		if bar != nil {
			_ = bar.Exit()
			fmt.Fprintln(os.Stderr)
		}
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("flush output stream: %w", err)
	}

	if digester != nil {
		fmt.Fprintln(os.Stderr, digester.Digest())
	}
	logger.Info("stream complete",
		"entries", stats.Entries,
		"skipped", stats.Skipped,
		"bytes", stats.Bytes,
		"written", counted.N)
	return nil
}

// loadFilter reads the member list named by --files-from, with "-"
// meaning stdin.
func loadFilter(path string) (*tarcat.Filter, error) {
	if path == "-" {
		return tarcat.ParseFilter(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open member list: %w", err)
	}
	defer f.Close()
	return tarcat.ParseFilter(f)
}

// newProgress builds the streaming progress sink. On a terminal it is a
// live bar; otherwise it logs a line roughly every tenth of the total so
// piped stderr stays readable. The bar is nil in the logging case.
func newProgress(total int, logger *slog.Logger) (tarcat.ProgressFunc, *progressbar.ProgressBar) {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("tarcat"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		return func(ev tarcat.ProgressEvent) {
			if ev.Stage == tarcat.StageStreaming {
				_ = bar.Add(1)
			}
		}, bar
	}

	step := max(total/10, 1)
	return func(ev tarcat.ProgressEvent) {
		if ev.Stage != tarcat.StageStreaming {
			return
		}
		if ev.EntriesDone%step == 0 || ev.EntriesDone == total {
			logger.Info("streaming", "entries", ev.EntriesDone, "total", total)
		}
	}, nil
}

// newLogger builds the stderr logger. A terminal gets text records,
// a pipe or redirect gets JSON.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tarcat streams archive members into one tar stream on stdout.

Each named archive is opened in turn (7z, zip, or tar, including
compressed tar) and its members are copied into a single continuous
tar stream. Member contents pass straight from the source archive to
stdout; nothing is staged on disk.

Usage:
  tarcat [flags] ARCHIVE...

Examples:
  # Concatenate two archives into one tar
  tarcat photos.7z scans.zip > all.tar

  # Compress the result and watch progress
  tarcat -p -Z zst backup.tar.gz extra.7z > all.tar.zst

  # Keep only the listed members, hash the result
  tarcat -T wanted.txt --digest big.7z > subset.tar

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

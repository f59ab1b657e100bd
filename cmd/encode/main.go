package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc"
	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/input"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

type encodeFlags struct {
	jobs        int
	chunkSize   int
	wrapCounts  bool
	compression string
	digest      bool
	progress    bool
	verbose     bool
	logLevel    string
}

func (f *encodeFlags) bind(fs *pflag.FlagSet) {
	fs.IntVarP(&f.jobs, "jobs", "j", 1, "Number of encoder workers (at least 1)")
	fs.IntVar(&f.chunkSize, "chunk-size", rlenc.DefaultChunkSize, "Bytes per unit of parallel work")
	fs.BoolVar(&f.wrapCounts, "wrap-counts", false, "Write run counts modulo 256 instead of splitting runs longer than 255")
	fs.StringVar(&f.compression, "compress", rlenc.CompressionNone, "Wrap the output stream: none or zstd")
	fs.BoolVar(&f.digest, "digest", false, "Print the sha256 digest of the encoded stream to stderr")
	fs.BoolVar(&f.progress, "progress", false, "Show a progress bar on stderr when it is a terminal")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log run statistics to stderr")
	fs.StringVar(&f.logLevel, "log-level", "error", "Log level: silent, error, warn, info or debug")
}

func (f *encodeFlags) options() rlenc.Options {
	opts := rlenc.DefaultOptions()
	opts.Workers = f.jobs
	opts.ChunkSize = f.chunkSize
	if f.wrapCounts {
		opts.CountMode = rlenc.CountWrap
	}
	opts.Sink = rlenc.SinkOptions{
		Compression: f.compression,
		Digest:      f.digest,
	}
	return opts
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &encodeFlags{}

	rootCmd := &cobra.Command{
		Use:   "encode [-j N] <file1> [file2 ...]",
		Short: "Run-length encode files in parallel into a single stream on stdout",
		Long: "encode splits its inputs into fixed-size chunks, encodes them on a pool of workers\n" +
			"and writes (symbol, count) byte pairs to stdout as if the concatenated inputs\n" +
			"had been encoded in one pass.",
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return encerrors.NewUsageError("expected at least one input file")
			}
			return flags.options().Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEncode(cmd.Context(), flags, args, stdout, stderr)
		},
	}
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)
	flags.bind(rootCmd.Flags())

	return rootCmd
}

func runEncode(ctx context.Context, flags *encodeFlags, paths []string, stdout, stderr io.Writer) error {
	level, err := logger.ParseLevel(flags.logLevel)
	if err != nil {
		return encerrors.NewUsageError("%v", err)
	}
	if flags.verbose && level < logger.LogLevelInfo {
		level = logger.LogLevelInfo
	}
	logger.SetOutput(stderr)
	logger.SetLogLevel(level)

	if isTerminal(stdout) {
		logger.Warn("Writing binary output to a terminal")
	}

	opts := flags.options()

	var bar *progressbar.ProgressBar
	if flags.progress && isTerminal(stderr) {
		opts.Progress = func(current, total int64) {
			if bar == nil {
				bar = progressbar.NewOptions64(total,
					progressbar.OptionSetWriter(stderr),
					progressbar.OptionSetDescription("Encoding chunks"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			bar.Set64(current)
		}
	}

	pipeline, err := rlenc.NewPipeline(input.NewFileSource(), opts)
	if err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx, paths, stdout)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if flags.digest {
		fmt.Fprintf(stderr, "%s\n", stats.Digest)
	}
	logger.Info("Files: %d, chunks: %d, workers: %d", stats.TotalFiles, stats.TotalChunks, stats.Workers)
	logger.Info("Input: %d bytes, output: %d bytes (%d pairs)", stats.InputBytes, stats.OutputBytes, stats.Pairs)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

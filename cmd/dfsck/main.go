package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/archive"
	"github.com/marmos91/dfsck/pkg/config"
	"github.com/marmos91/dfsck/pkg/fsck"
	"github.com/marmos91/dfsck/pkg/namespace"
	"github.com/marmos91/dfsck/pkg/namespace/image"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath   = flag.String("config", "", "path to configuration file")
		logLevel     = flag.String("log-level", "", "override configured log level (DEBUG, INFO, WARN, ERROR)")
		move         = flag.Bool("move", false, "move unrecoverable files into the lost+found quarantine subtree")
		openForWrite = flag.Bool("openforwrite", false, "include files with an active write lease in the report")
		listCorrupt  = flag.Bool("list-corruptfiles", false, "list only the paths of unrecoverable files")
		wait         = flag.Bool("wait", false, "re-run the check with the configured retry policy until the tree stops reporting CORRUPT")
		dumpImage    = flag.String("dump-image", "", "dump the namespace under the target path as an XDR image to the given file and exit")
		writeConfig  = flag.Bool("write-default-config", false, "print the fully defaulted configuration as YAML and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *writeConfig {
		if err := config.WriteDefault(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write default configuration: %v\n", err)
			return fsck.ExitFailure
		}
		return fsck.ExitHealthy
	}

	if flag.NArg() != 1 {
		usage()
		return fsck.ExitFailure
	}
	target := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return fsck.ExitFailure
	}
	if *logLevel != "" {
		// The override joins the config after Load already validated it, so
		// it has to pass the same checks.
		cfg.Logging.Level = *logLevel
		if err := config.Validate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -log-level %q: %v\n", *logLevel, err)
			return fsck.ExitFailure
		}
	}

	log, closeLog, err := buildLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return fsck.ExitFailure
	}
	defer closeLog()

	ctx := context.Background()

	svc, closeSvc, err := config.CreateNamespaceService(ctx, &cfg.Namespace, log)
	if err != nil {
		log.Error("failed to initialize namespace backend: %v", err)
		return fsck.ExitFailure
	}
	defer func() {
		if err := closeSvc(); err != nil {
			log.Warn("failed to close namespace backend: %v", err)
		}
	}()

	if *dumpImage != "" {
		if err := dump(ctx, svc, target, *dumpImage); err != nil {
			log.Error("image dump failed: %v", err)
			return fsck.ExitFailure
		}
		log.Info("namespace image written to %s", *dumpImage)
		return fsck.ExitHealthy
	}

	sink, err := config.CreateArchiveSink(ctx, &cfg.Archive, log)
	if err != nil {
		log.Error("failed to initialize report archive: %v", err)
		return fsck.ExitFailure
	}

	opts := fsck.Options{
		Move:                *move,
		OpenForWriteVisible: *openForWrite,
		ListCorruptFiles:    *listCorrupt,
	}

	started := time.Now()
	var report bytes.Buffer
	out := io.MultiWriter(os.Stdout, &report)

	checker := fsck.New(svc, log)
	var code int
	if *wait {
		code, err = checker.Wait(ctx, target, opts, config.CreateRetryPolicy(&cfg.Checker.Retry), out)
	} else {
		code, err = checker.Run(ctx, target, opts, out)
	}
	switch {
	case errors.Is(err, fsck.ErrRetriesExhausted):
		log.Warn("tree still reports corruption after %d attempts", cfg.Checker.Retry.MaxAttempts)
	case err != nil:
		log.Error("fsck failed: %v", err)
	}

	if sink != nil && report.Len() > 0 {
		name := archive.ReportName(started)
		if err := sink.Store(ctx, name, report.Bytes()); err != nil {
			// Archival is best-effort; the verdict already went to stdout.
			log.Warn("failed to archive report: %v", err)
		}
	}

	return code
}

// dump captures the namespace subtree under target as an XDR image file.
func dump(ctx context.Context, svc namespace.Service, target, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if err := image.Dump(ctx, f, svc, target); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func buildLogger(cfg *config.LoggingConfig) (*logger.Logger, func(), error) {
	var w io.Writer
	closeFn := func() {}

	switch cfg.Output {
	case "stderr", "":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	return logger.New(logger.ParseLevel(cfg.Level), w), closeFn, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dfsck [flags] <path>

Checks every file under <path> for missing, corrupt and under-replicated
blocks and prints a report ending in HEALTHY, CORRUPT or FAILURE.

Exit codes: 0 healthy, 1 corrupt files or blocks found, -1 internal failure.

Flags:
`)
	flag.PrintDefaults()
}

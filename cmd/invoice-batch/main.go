package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-extract/internal/app"
	"github.com/joseph-ayodele/invoice-extract/internal/async"
	"github.com/joseph-ayodele/invoice-extract/internal/core"
	"github.com/joseph-ayodele/invoice-extract/internal/export"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		envFile = flag.String("env", ".env", "optional .env file")
		inmem   = flag.Bool("inmem", false, "use an in-memory SQLite store when DB_URL is unset")
		dir     = flag.String("dir", "", "directory of invoices to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		watch   = flag.Bool("watch", false, "keep watching the directory for new files")
		workers = flag.Int("workers", 4, "parallel documents")
		force   = flag.Bool("force", false, "re-extract files already in the store")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "invoices.xlsx")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, app.Options{EnvFile: *envFile, JSONLogs: true, InMemory: *inmem})
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	logger := a.Logger

	go a.Sweeper.Run(ctx)

	processor := core.NewProcessor(logger, ingest.NewFSIngestor(logger), a.Pipeline, a.Repo)
	queue := async.NewProcessorQueue(processor.Handle, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(64),
		async.WithProcessTimeout(a.Config.Remote.Timeout*3),
	)

	submitted := 0
	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			InitialScan: true,
			SkipHidden:  true,
			Debounce:    500 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		logger.Info("watching directory", "dir", *dir)
	loop:
		for {
			select {
			case p, ok := <-events:
				if !ok {
					break loop
				}
				if err := queue.Enqueue(ctx, async.Job{Path: p, Force: *force}); err == nil {
					submitted++
				}
			case err, ok := <-errs:
				if ok {
					logger.Warn("watcher error", "error", err)
				}
			case <-ctx.Done():
				break loop
			}
		}
	} else {
		err := filepath.WalkDir(*dir, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() || ingest.IsHidden(p) || !ingest.AllowedExt(filepath.Ext(p)) {
				return nil
			}
			if err := queue.Enqueue(ctx, async.Job{Path: p, Force: *force}); err != nil {
				return err
			}
			submitted++
			return nil
		})
		if err != nil {
			logger.Error("failed to scan directory", "error", err)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	queue.Shutdown(drainCtx)
	cancel()

	rows := processor.Rows()
	failures := 0
	for _, r := range rows {
		if r.Err != "" {
			failures++
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsx, err := export.NewService(a.Repo, logger).WriteXLSX(rows)
	if err != nil {
		logger.Error("failed to export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_submitted", submitted,
		"files_processed", len(rows)-failures,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files submitted: %d\n", submitted)
	fmt.Printf("- Files processed: %d\n", len(rows)-failures)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}

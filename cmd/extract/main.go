package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-extract/internal/app"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
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
		ping    = flag.Bool("ping", false, "check the AI collaborator and exit")
		noAI    = flag.Bool("no-ai", false, "disable the AI fallback")
		timeout = flag.Duration("timeout", 3*time.Minute, "overall timeout")
		jsonLog = flag.Bool("json-logs", false, "log as JSON")
	)
	flag.Parse()

	if *noAI {
		_ = os.Setenv("AI_FALLBACK_ENABLED", "false")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.Build(ctx, app.Options{EnvFile: *envFile, JSONLogs: *jsonLog})
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *ping {
		h, err := a.Remote.Ping(ctx)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %s %s\n", h.Service, h.Version, h.Status)
		return
	}

	if flag.NArg() != 1 {
		printError("usage: extract [flags] <invoice.pdf|jpg|png>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	res, err := a.Pipeline.Run(ctx, entity.RawDocument{Bytes: data, FilenameHint: filepath.Base(path)})
	if err != nil {
		a.Logger.Error("extract.failed", "path", path, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/gamecraft/pipeline"
)

func main() {
	godotenv.Load()

	query := flag.String("query", "", "natural-language content request")
	duration := flag.Int("duration", 0, "target script length in minutes (overrides GAMECRAFT_DEFAULT_DURATION)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	// Bare words after the flags also work: gamecraft Hades review
	if *query == "" {
		*query = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "usage: gamecraft -query \"Make a review of Hades\"")
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := pipeline.FromEnv()
	if *duration > 0 {
		cfg.DefaultDurationMinutes = *duration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := pipeline.NewFromConfig(ctx, cfg, pipeline.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "gamecraft: %v\n", err)
		os.Exit(1)
	}

	result := runner.Run(ctx, *query)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "gamecraft: encode result: %v\n", err)
		os.Exit(1)
	}

	if !result.Success {
		os.Exit(1)
	}
}

// Command reposum summarizes one GitHub repository from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"reposummarizer/internal/gateway/app"
	"reposummarizer/internal/gateway/config"
	"reposummarizer/internal/pipeline"
	"reposummarizer/internal/types"
)

var (
	red  = color.New(color.FgRed, color.Bold)
	cyan = color.New(color.FgCyan)
	dim  = color.New(color.Faint)
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reposum", flag.ContinueOnError)
	fs.SetOutput(stderr)
	repoURL := fs.String("url", "", "GitHub repository URL")
	dir := fs.String("dir", "", "summarize a local checkout instead of a GitHub URL")
	out := fs.String("out", "", "write the JSON result to this file instead of stdout")
	timeout := fs.Duration("timeout", 0, "overall timeout (default from ENDPOINT_TIMEOUT)")
	cfgFile := fs.String("config", "", "YAML config file")
	progress := fs.Bool("progress", isTerminal(stderr), "print pipeline progress to stderr")
	verbose := fs.Bool("v", false, "log pipeline details to stderr")
	noColor := fs.Bool("no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *noColor {
		color.NoColor = true
	}
	if *repoURL == "" && fs.NArg() > 0 {
		*repoURL = fs.Arg(0)
	}
	if *repoURL == "" && *dir == "" {
		red.Fprintln(stderr, "error: -url or -dir is required")
		return 2
	}

	var cfgArgs []string
	if *cfgFile != "" {
		cfgArgs = []string{"-config", *cfgFile}
	}
	cfg, err := config.Load(cfgArgs)
	if err != nil {
		red.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "reposum ", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		red.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer svc.Close()

	if *progress {
		ctx = pipeline.WithObserver(ctx, func(ev pipeline.Event) {
			printEvent(stderr, ev)
		})
	}

	start := time.Now()
	var res types.SummaryResult
	if *dir != "" {
		res, err = svc.SummarizeDir(ctx, *dir)
	} else {
		res, err = svc.Summarize(ctx, *repoURL)
	}
	if err != nil {
		kind := pipeline.KindOf(err)
		red.Fprintf(stderr, "%s: ", kind)
		fmt.Fprintln(stderr, pipeline.MessageOf(err))
		dim.Fprintf(stderr, "(HTTP equivalent %d, after %s)\n", kind.HTTPStatus(), time.Since(start).Round(time.Millisecond))
		return 1
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		red.Fprintf(stderr, "encode result: %v\n", err)
		return 1
	}
	if *out != "" {
		if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
			red.Fprintf(stderr, "write %s: %v\n", *out, err)
			return 1
		}
		cyan.Fprintf(stderr, "wrote %s in %s\n", *out, time.Since(start).Round(time.Millisecond))
		return 0
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printEvent(w io.Writer, ev pipeline.Event) {
	line := string(ev.Stage)
	if ev.Total > 0 {
		line += fmt.Sprintf(" %d/%d", ev.Completed, ev.Total)
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	if ev.Stage == pipeline.StageFailed {
		red.Fprintln(w, line)
		return
	}
	cyan.Fprintln(w, line)
}

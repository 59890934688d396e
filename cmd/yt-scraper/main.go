// Command yt-scraper fetches YouTube channel metadata from the command line
// or serves it over HTTP.
//
// Usage:
//
//	yt-scraper [-config config.json] channel [-fields viewCount,keywords] <channelID>
//	yt-scraper [-config config.json] search [-max 10] [-topic /m/02wbm] [-opt regionCode=US] <query...>
//	yt-scraper [-config config.json] serve [-addr :8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/yt-channel-scraper/pkg/config"
	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/rs/zerolog/log"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses the global flags, loads the configuration and dispatches to a
// subcommand. It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("yt-scraper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "path to the JSON or YAML config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yt-scraper [-config path] <channel|search|serve> [flags] [args]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if _, ok := commands[cmd]; !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(logging.Config{Level: logging.LevelError, Output: stderr})
		log.Error().Err(err).Msg("Failed to load configuration")
		return exitFailure
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = stderr
	logging.Setup(logCfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return exitFailure
	}
	defer a.Close()

	return commands[cmd](ctx, a, cmdArgs, stdout, stderr)
}

// command runs one subcommand and returns its exit code.
type command func(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int

var commands = map[string]command{
	"channel": runChannel,
	"search":  runSearch,
	"serve":   runServe,
}

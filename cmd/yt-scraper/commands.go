package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/yt-channel-scraper/pkg/scraper"
	"github.com/rs/zerolog/log"
)

func runChannel(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("channel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fieldList := fs.String("fields", "", "comma-separated channel attributes (default: all)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yt-scraper channel [-fields a,b,c] <channelID>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	record, err := a.scraper.FetchChannel(ctx, fs.Arg(0), splitList(*fieldList)...)
	if err != nil {
		log.Error().Err(err).Str("channel_id", fs.Arg(0)).Msg("Channel fetch failed")
		return exitFailure
	}

	if err := printJSON(stdout, record); err != nil {
		log.Error().Err(err).Msg("Failed to write output")
		return exitFailure
	}
	return exitOK
}

func runSearch(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	maxChannels := fs.Int("max", 10, "maximum number of channels to return")
	topicID := fs.String("topic", "", "Freebase topic ID filter, e.g. /m/02wbm")
	extra := optionFlag{}
	fs.Var(extra, "opt", "extra search parameter as key=value (repeatable)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yt-scraper search [-max N] [-topic ID] [-opt key=value ...] <query...>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	query := strings.Join(fs.Args(), " ")
	if query == "" || *maxChannels < 0 {
		fs.Usage()
		return exitUsage
	}

	snippets, err := a.scraper.SearchChannels(ctx, query, *maxChannels, scraper.SearchOptions{
		TopicID: *topicID,
		Extra:   extra,
	})

	if werr := printJSON(stdout, snippets); werr != nil {
		log.Error().Err(werr).Msg("Failed to write output")
		return exitFailure
	}
	if err != nil {
		log.Error().
			Err(err).
			Int("collected", len(snippets)).
			Msg("Search stopped early")
		return exitFailure
	}
	return exitOK
}

// optionFlag collects repeated key=value flags.
type optionFlag map[string]string

func (o optionFlag) String() string {
	pairs := make([]string, 0, len(o))
	for k, v := range o {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (o optionFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	o[k] = v
	return nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

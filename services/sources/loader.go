package sources

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"sjsage522/giveawayrelay/helpers"
	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"golang.org/x/sync/errgroup"
)

var _ Feed = (*Loader)(nil)

// Loader gathers sources from every configured origin. Precedence, which
// decides the name kept for a duplicated URL, is: local text file, remote
// text list, remote CSV, local JSON file.
type Loader struct {
	LocalTextPath string
	RemoteTextURL string
	SheetCSVURL   string
	LocalJSONPath string
	UserAgent     string

	log *logger.Logger
}

// NewLoader creates a loader logging to log
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{log: log}
}

// Load never fails: an origin that is missing or broken contributes no
// sources and is logged.
func (l *Loader) Load(ctx context.Context) []Source {
	fromText := l.readText()

	var remoteText, sheet []Source
	g, gctx := errgroup.WithContext(ctx)
	if l.RemoteTextURL != "" {
		g.Go(func() error {
			remoteText = l.fetch(gctx, l.RemoteTextURL, ParseText)
			return nil
		})
	}
	if l.SheetCSVURL != "" {
		g.Go(func() error {
			sheet = l.fetch(gctx, l.SheetCSVURL, ParseCSV)
			return nil
		})
	}
	_ = g.Wait()

	fromJSON := l.readJSON()

	all := Dedupe(fromText, remoteText, sheet, fromJSON)
	l.log.Info().
		Int("local_text", len(fromText)).
		Int("remote_text", len(remoteText)).
		Int("sheet", len(sheet)).
		Int("local_json", len(fromJSON)).
		Int("total", len(all)).
		Msg("Sources loaded")
	for i, src := range all {
		l.log.Debug().Int("index", i+1).Str("name", src.Name).Str("url", src.URL).Msg("Source")
	}
	return all
}

func (l *Loader) readText() []Source {
	data, ok := l.readFile(l.LocalTextPath)
	if !ok {
		return nil
	}
	return ParseText(string(data))
}

func (l *Loader) readJSON() []Source {
	data, ok := l.readFile(l.LocalJSONPath)
	if !ok {
		return nil
	}
	out, err := ParseJSON(data)
	if err != nil {
		l.log.Warn().Err(relayerrors.NewSourceFeed(l.LocalJSONPath, "invalid source JSON", err)).Msg("Skipping source file")
		return nil
	}
	return out
}

func (l *Loader) readFile(path string) ([]byte, bool) {
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Warn().Err(relayerrors.NewSourceFeed(path, "failed to read source file", err)).Msg("Skipping source file")
		}
		return nil, false
	}
	return data, true
}

func (l *Loader) fetch(ctx context.Context, rawURL string, parse func(string) []Source) []Source {
	body, err := helpers.FetchText(ctx, rawURL, l.UserAgent)
	if err != nil {
		l.log.Warn().Err(relayerrors.NewSourceFeed(rawURL, "failed to fetch source list", err)).Msg("Skipping source list")
		return nil
	}
	return parse(body)
}

// Package sources loads the list of pages to crawl from local files and
// remote lists.
package sources

import (
	"context"
	"encoding/json"
	"strings"

	"sjsage522/giveawayrelay/helpers"
)

// Source is one page to crawl. Name is used for attribution only.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Feed supplies the sources for one run.
type Feed interface {
	Load(ctx context.Context) []Source
}

// Static is a fixed Feed.
type Static []Source

// Load returns the static sources
func (s Static) Load(ctx context.Context) []Source {
	return s
}

func newSource(name, rawURL string) (Source, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if !helpers.IsAbsoluteURL(rawURL) {
		return Source{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = rawURL
	}
	return Source{Name: name, URL: rawURL}, true
}

// ParseText parses one source per line, either "url" or "name | url".
// Blank lines and lines starting with # are skipped.
func ParseText(raw string) []Source {
	var out []Source
	for _, line := range splitLines(raw) {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		var name, rawURL string
		if strings.Contains(s, "|") {
			parts := strings.Split(s, "|")
			name, rawURL = parts[0], parts[1]
		} else {
			rawURL = s
		}
		if src, ok := newSource(name, rawURL); ok {
			out = append(out, src)
		}
	}
	return out
}

// ParseCSV parses "name,url" rows. The first non-empty line is a header
// when it mentions "url". Everything after the first comma is the URL.
// Quoted fields are not supported.
func ParseCSV(raw string) []Source {
	var lines []string
	for _, line := range splitLines(raw) {
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	if strings.Contains(strings.ToLower(lines[0]), "url") {
		lines = lines[1:]
	}

	var out []Source
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var name, rawURL string
		if i := strings.Index(line, ","); i >= 0 {
			name, rawURL = line[:i], line[i+1:]
		} else {
			rawURL = line
		}
		if src, ok := newSource(name, rawURL); ok {
			out = append(out, src)
		}
	}
	return out
}

// ParseJSON parses an array of {"name","url"} objects.
func ParseJSON(data []byte) ([]Source, error) {
	var entries []Source
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	var out []Source
	for _, e := range entries {
		if src, ok := newSource(e.Name, e.URL); ok {
			out = append(out, src)
		}
	}
	return out, nil
}

// Dedupe keeps the first source seen for each URL.
func Dedupe(lists ...[]Source) []Source {
	seen := make(map[string]struct{})
	var out []Source
	for _, list := range lists {
		for _, src := range list {
			if _, ok := seen[src.URL]; ok {
				continue
			}
			seen[src.URL] = struct{}{}
			out = append(out, src)
		}
	}
	return out
}

func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
